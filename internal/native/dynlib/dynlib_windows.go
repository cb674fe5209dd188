package dynlib

import (
	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

const (
	libName       = "clipcore.dll"
	loaderPathEnv = "PATH"
)

var systemDirs = []string{
	`C:\Windows\System32`,
}

func openLibrary(path string) (uintptr, error) {
	handle, err := windows.LoadLibrary(path)
	return uintptr(handle), err
}

func registerFunc(fptr any, handle uintptr, name string) {
	purego.RegisterLibFunc(fptr, handle, name)
}
