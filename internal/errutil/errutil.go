// Package errutil contains helpers to deal with errors on paths where
// a regular "return err" doesn't work, such as deferred calls
package errutil

import "io"

// Close closes the closer and reports a failure through err, unless
// err already carries an earlier error.
// Meant to be used in a defer:
//
//	defer errutil.Close(f, &err)
func Close(c io.Closer, err *error) {
	e := c.Close()
	if *err == nil && e != nil {
		*err = e
	}
}
