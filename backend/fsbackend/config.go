package fsbackend

import (
	"bytes"
	"os"
	"path/filepath"

	ini "github.com/go-ini/ini"
	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/minigit-scm/minigit/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Default identity used when the config file has no user section.
// https://git-scm.com/docs/git-config#Documentation/git-config.txt-username
const (
	defaultUserName  = "123abc"
	defaultUserEmail = "123abc@example.com"
)

func (b *Backend) configPath() string {
	return filepath.Join(b.root, gitpath.ConfigPath)
}

// setDefaultConfig writes the default .git/config file
// (content taken from a repo created by git init)
func (b *Backend) setDefaultConfig() (err error) {
	cfg := ini.Empty()
	core, err := cfg.NewSection("core")
	if err != nil {
		return xerrors.Errorf("could not create core section: %w", err)
	}
	sets := []struct {
		key   string
		value string
	}{
		{key: "repositoryformatversion", value: "0"},
		{key: "filemode", value: "true"},
		{key: "bare", value: "false"},
	}
	for _, s := range sets {
		if _, err := core.NewKey(s.key, s.value); err != nil {
			return xerrors.Errorf("could not set %s: %w", s.key, err)
		}
	}

	out := new(bytes.Buffer)
	if _, err := cfg.WriteTo(out); err != nil {
		return xerrors.Errorf("could not serialize config: %w", err)
	}
	if err := afero.WriteFile(b.fs, b.configPath(), out.Bytes(), 0o644); err != nil {
		return xerrors.Errorf("could not persist config: %w", err)
	}
	return nil
}

// UserSignature returns the identity configured in .git/config,
// falling back to a default identity when the file or the user
// section is missing
func (b *Backend) UserSignature() (object.Signature, error) {
	data, err := afero.ReadFile(b.fs, b.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return object.NewSignature(defaultUserName, defaultUserEmail), nil
		}
		return object.Signature{}, xerrors.Errorf("could not read config: %w", err)
	}

	cfg, err := ini.Load(data)
	if err != nil {
		return object.Signature{}, xerrors.Errorf("could not parse config: %w", err)
	}

	user := cfg.Section("user")
	name := user.Key("name").MustString(defaultUserName)
	email := user.Key("email").MustString(defaultUserEmail)
	return object.NewSignature(name, email), nil
}
