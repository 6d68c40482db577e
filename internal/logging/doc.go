// Package logging provides the leveled, colored console logger used by
// sous. Info output is shown with --verbose, debug output with --debug;
// warnings and errors are always printed to the error stream.
package logging
