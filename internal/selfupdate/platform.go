package selfupdate

import (
	"fmt"
	"runtime"
)

// binaryName is the executable inside every release archive.
const binaryName = "examgen"

// releaseArch maps GOARCH to the architecture names used in asset names.
var releaseArch = map[string]string{
	"amd64": "x86_64",
	"arm64": "arm64",
	"386":   "i386",
}

type platform struct {
	goos   string
	goarch string
}

func currentPlatform() platform {
	return platform{goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// asset names the release archive for p. macOS ships one universal build.
func (p platform) asset() (string, error) {
	if p.goos == "darwin" {
		return binaryName + "_Darwin_all.tar.gz", nil
	}

	var osName, ext string
	switch p.goos {
	case "linux":
		osName, ext = "Linux", ".tar.gz"
	case "windows":
		osName, ext = "Windows", ".zip"
	default:
		return "", fmt.Errorf("unsupported operating system: %s", p.goos)
	}
	arch, ok := releaseArch[p.goarch]
	if !ok {
		return "", fmt.Errorf("unsupported architecture: %s", p.goarch)
	}
	return fmt.Sprintf("%s_%s_%s%s", binaryName, osName, arch, ext), nil
}

func assetName() (string, error) {
	return currentPlatform().asset()
}

func assetNameFor(goos, goarch string) (string, error) {
	return platform{goos: goos, goarch: goarch}.asset()
}
