package main

import (
	"flag"
	"fmt"
	"math/rand"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/moormud/moormud/engine/binutil"
	"github.com/moormud/moormud/engine/config"
	"github.com/moormud/moormud/engine/mmlog"
	"github.com/moormud/moormud/engine/world"
)

var (
	args struct {
		configFile      string
		logLevel        string
		runInDaemonMode bool
		restart         bool
	}
	worldService *world.Service
	signalChan   = make(chan os.Signal, 1)
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

	worldConfig := config.GetWorld()
	if worldConfig.GoMaxProcs > 0 {
		mmlog.Infof("SET GOMAXPROCS = %d", worldConfig.GoMaxProcs)
		runtime.GOMAXPROCS(worldConfig.GoMaxProcs)
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = worldConfig.LogLevel
	}
	binutil.SetupMMLog("world", logLevel, worldConfig.LogFile, worldConfig.LogStderr)
	binutil.SetupHTTPServer(worldConfig.HTTPIp, worldConfig.HTTPPort, nil)

	linkConfig := config.GetLink()
	listenAddr := fmt.Sprintf("%s:%d", linkConfig.Ip, linkConfig.Port)
	worldService = world.NewService(listenAddr, &echoWorld{}, worldConfig.LoadReportInterval)

	setupSignals()
	worldService.Run()
	mmlog.Infof("World terminated gracefully.")
}

func setupSignals() {
	mmlog.Infof("Setup signals ...")
	signal.Ignore(syscall.Signal(12), syscall.SIGPIPE, syscall.SIGHUP)
	// signal 10 is SIGUSR1, the planned-restart request
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.Signal(10))

	go func() {
		for {
			sig := <-signalChan
			switch sig {
			case syscall.Signal(10):
				// planned restart: tell the portal to hold sessions
				mmlog.Infof("Restarting world service ...")
				worldService.Shutdown(true)
				return
			case syscall.SIGINT, syscall.SIGTERM:
				mmlog.Infof("Terminating world service ...")
				worldService.Shutdown(false)
				return
			default:
				mmlog.Errorf("unexpected signal: %s", sig)
			}
		}
	}()
}
