package main

import (
	"flag"
	"fmt"
	"math/rand"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"
	"time"

	"github.com/moormud/moormud/engine/binutil"
	"github.com/moormud/moormud/engine/config"
	"github.com/moormud/moormud/engine/mmlog"
)

var (
	args struct {
		configFile      string
		logLevel        string
		runInDaemonMode bool
	}
	portalService *PortalService
	signalChan    = make(chan os.Signal, 1)
)

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.Parse()
}

func main() {
	rand.Seed(time.Now().UnixNano())
	parseArgs()

	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize()
		defer daemoncontext.Release()
	}

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}

	portalConfig := config.GetPortal()
	if portalConfig.GoMaxProcs > 0 {
		mmlog.Infof("SET GOMAXPROCS = %d", portalConfig.GoMaxProcs)
		runtime.GOMAXPROCS(portalConfig.GoMaxProcs)
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = portalConfig.LogLevel
	}
	binutil.SetupMMLog("portal", logLevel, portalConfig.LogFile, portalConfig.LogStderr)

	portalService = newPortalService(portalConfig)

	if portalConfig.TLSPort != 0 || portalConfig.RSACertificate != "" {
		cfgdir := config.GetConfigDir()
		rsaCert := path.Join(cfgdir, portalConfig.RSACertificate)
		rsaKey := path.Join(cfgdir, portalConfig.RSAKey)
		binutil.SetupHTTPServerTLS(portalConfig.HTTPIp, portalConfig.HTTPPort, portalService.handleWebSocketConn, rsaCert, rsaKey)
	} else {
		binutil.SetupHTTPServer(portalConfig.HTTPIp, portalConfig.HTTPPort, portalService.handleWebSocketConn)
	}

	setupSignals()
	portalService.run()
}

func setupSignals() {
	mmlog.Infof("Setup signals ...")
	signal.Ignore(syscall.Signal(10), syscall.Signal(12), syscall.SIGPIPE, syscall.SIGHUP)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			sig := <-signalChan
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				// terminating portal ...
				mmlog.Infof("Terminating portal service ...")
				portalService.terminate()
				portalService.terminated.Wait()
				mmlog.Infof("Portal terminated gracefully.")
				os.Exit(0)
			} else {
				mmlog.Errorf("unexpected signal: %s", sig)
			}
		}
	}()
}

func linkAddr() string {
	linkConfig := config.GetLink()
	return fmt.Sprintf("%s:%d", linkConfig.Ip, linkConfig.Port)
}
