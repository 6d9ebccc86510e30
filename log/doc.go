// Package log provides the leveled logging interface used across ragrouter.
//
// The Logger interface carries four printf-style methods (Debug, Info, Warn,
// Error). The default implementation writes through github.com/kataras/golog,
// so every component shares golog's formatting and output handling.
//
// # Example Usage
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	logger.Info("Node: %s", "checkQueryType")
//
//	// Wrap an existing golog instance
//	glogger := golog.New()
//	glogger.SetPrefix("[worker] ")
//	logger = log.NewGologLogger(glogger)
//
// # Package-level Logger
//
// Packages that do not receive a logger explicitly use the package-level one:
//
//	log.SetLogLevel(log.LogLevelDebug)
//	log.Debug("retrieved %d document(s)", n)
//
// Levels can be parsed from configuration strings with ParseLevel.
package log
