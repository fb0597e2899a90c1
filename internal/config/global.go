// SPDX-License-Identifier: MPL-2.0

package config

// Directory overrides let tests bypass os.UserHomeDir, which does not
// reliably respect HOME on every platform.
var (
	configDirOverride string
	dataDirOverride   string
)

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
	dataDirOverride = ""
}

// SetConfigDirOverride pins the config directory.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetDataDirOverride pins the data directory.
func SetDataDirOverride(dir string) {
	dataDirOverride = dir
}
