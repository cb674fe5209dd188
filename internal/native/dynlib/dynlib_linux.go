package dynlib

const (
	libName       = "libclipcore.so"
	loaderPathEnv = "LD_LIBRARY_PATH"
)

var systemDirs = []string{
	"/usr/local/lib",
	"/usr/lib",
}
