package dynlib

const (
	libName       = "libclipcore.dylib"
	loaderPathEnv = "DYLD_LIBRARY_PATH"
)

var systemDirs = []string{
	"/usr/local/lib",
	"/opt/homebrew/lib",
}
