package version

// Version is the alfa-scout release version, overridable at build time with
// -ldflags "-X alfa-scout/internal/version.Version=...".
var Version = "1.0.0"
