// SPDX-License-Identifier: MPL-2.0

package modloader

import "context"

type (
	// Mod is a loaded extension instance.
	Mod interface {
		// ModID is the registry key. It must not be empty.
		ModID() string
		ModVersion() string
		ModAuthor() string
		// IsMPCompatible reports whether the mod is safe in multiplayer sessions.
		IsMPCompatible() bool
	}

	// Starter is implemented by mods that need a start hook after loading.
	Starter interface {
		Start(ctx context.Context) error
	}

	// Updater is implemented by mods that take part in the host's periodic
	// update tick.
	Updater interface {
		Update(ctx context.Context) error
	}

	// Stopper is implemented by mods that need a shutdown hook.
	Stopper interface {
		Stop(ctx context.Context) error
	}

	// Descriptor is the identity a mod declares.
	Descriptor struct {
		ID                    string `json:"id"`
		Version               string `json:"version"`
		Author                string `json:"author"`
		MultiplayerCompatible bool   `json:"multiplayer_compatible"`
	}
)

// Describe captures m's declared identity.
func Describe(m Mod) Descriptor {
	return Descriptor{
		ID:                    m.ModID(),
		Version:               m.ModVersion(),
		Author:                m.ModAuthor(),
		MultiplayerCompatible: m.IsMPCompatible(),
	}
}
