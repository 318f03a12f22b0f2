package promptplug

// Version is the release of the promptplug module, reported by plugd.
var Version = "0.4.0"
