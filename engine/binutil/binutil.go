// Package binutil carries the startup plumbing shared by the portal
// and world binaries: log setup, the pprof/websocket HTTP server and
// daemonizing.
package binutil

import (
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/natefinch/lumberjack"
	"golang.org/x/net/websocket"

	"github.com/moormud/moormud/engine/mmlog"
)

// SetupHTTPServer starts the HTTP server for go tool pprof and websockets
func SetupHTTPServer(ip string, port int, wsHandler func(ws *websocket.Conn)) {
	setupHTTPServer(ip, port, wsHandler, "", "")
}

// SetupHTTPServerTLS starts the HTTPs server for go tool pprof and websockets
func SetupHTTPServerTLS(ip string, port int, wsHandler func(ws *websocket.Conn), certFile string, keyFile string) {
	setupHTTPServer(ip, port, wsHandler, certFile, keyFile)
}

func setupHTTPServer(ip string, port int, wsHandler func(ws *websocket.Conn), certFile string, keyFile string) {
	if port == 0 {
		// http server not enabled
		mmlog.Infof("http server not enabled")
		return
	}

	httpHost := fmt.Sprintf("%s:%d", ip, port)
	mmlog.Infof("http server listening on %s", httpHost)
	mmlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", httpHost)
	mmlog.Infof("    go tool pprof http://%s/debug/pprof/heap", httpHost)
	mmlog.Infof("    go tool pprof http://%s/debug/pprof/profile", httpHost)
	if keyFile != "" || certFile != "" {
		mmlog.Infof("TLS is enabled on http: key=%s, cert=%s", keyFile, certFile)
	}

	if wsHandler != nil {
		http.Handle("/ws", websocket.Handler(wsHandler))
	}

	go func() {
		if keyFile == "" && certFile == "" {
			http.ListenAndServe(httpHost, nil)
		} else {
			http.ListenAndServeTLS(httpHost, certFile, keyFile, nil)
		}
	}()
}

// SetupMMLog setup the log system of a component process
func SetupMMLog(component string, logLevel string, logFile string, logStderr bool) {
	mmlog.SetSource(component)
	mmlog.Infof("Set log level to %s", logLevel)
	mmlog.SetLevel(mmlog.StringToLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		logFileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 100,
			MaxAge:     30, //days
			Compress:   true,
		}

		logFileWriter.Rotate() // rotate immediately
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr {
		outputWriters = append(outputWriters, os.Stderr)
	}

	if len(outputWriters) == 1 {
		mmlog.SetOutput(outputWriters[0])
	} else {
		mmlog.SetOutput(io.MultiWriter(outputWriters...))
	}
}
