//go:build windows

package envmutate

import (
	"golang.org/x/sys/windows/registry"
)

// registryStore persists PATH and variable edits to the Windows
// registry: HKCU\Environment for user scope, HKLM's system
// Environment key for system scope. Broadcasting WM_SETTINGCHANGE so
// already-running processes observe the change is left to the shell;
// new processes pick up registry-persisted values automatically.
type registryStore struct{}

// NewStore returns the platform environment store.
func NewStore() Store { return registryStore{} }

func (registryStore) key(systemScope bool, writable bool) (registry.Key, string, error) {
	access := uint32(registry.QUERY_VALUE)
	if writable {
		access |= registry.SET_VALUE
	}
	if systemScope {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE,
			`SYSTEM\CurrentControlSet\Control\Session Manager\Environment`, access)
		return k, "PATH", err
	}
	k, err := registry.OpenKey(registry.CURRENT_USER, `Environment`, access)
	return k, "PATH", err
}

func (s registryStore) GetPath(systemScope bool) (string, error) {
	k, name, err := s.key(systemScope, false)
	if err != nil {
		return "", err
	}
	defer k.Close()

	val, _, err := k.GetStringValue(name)
	if err == registry.ErrNotExist {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s registryStore) SetPath(systemScope bool, value string) error {
	k, name, err := s.key(systemScope, true)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetExpandStringValue(name, value)
}

func (s registryStore) SetVar(systemScope bool, name, value string) error {
	root := registry.CURRENT_USER
	path := `Environment`
	if systemScope {
		root = registry.LOCAL_MACHINE
		path = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`
	}
	k, err := registry.OpenKey(root, path, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue(name, value)
}
