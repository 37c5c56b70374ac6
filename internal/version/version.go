package version

// Current is the release version, without a leading "v".
const Current = "0.1.0"

// String is the version banner printed by the CLI.
func String() string {
	return "synthdata " + Current
}
