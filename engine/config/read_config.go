package config

import (
	"encoding/json"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/moormud/moormud/engine/consts"
	"github.com/moormud/moormud/engine/mmlog"
)

const (
	_DEFAULT_CONFIG_FILE  = "moormud.ini"
	_DEFAULT_LOCALHOST_IP = "127.0.0.1"
	_DEFAULT_HTTP_IP      = "127.0.0.1"
	_DEFAULT_LOG_LEVEL    = "debug"
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	moorMudConfig  *MoorMudConfig
	configLock     sync.Mutex
)

// PortalConfig defines fields of portal config
type PortalConfig struct {
	Ip                 string
	Port               int // telnet listener, 0 disables
	TLSPort            int // telnet over TLS listener, 0 disables
	KCPPort            int // telnet over KCP listener, 0 disables
	HTTPIp             string
	HTTPPort           int // pprof + websocket endpoint, 0 disables
	LogFile            string
	LogStderr          bool
	LogLevel           string
	GoMaxProcs         int
	CompressConnection bool
	RSAKey             string
	RSACertificate     string
	IdleTimeout        time.Duration // 0 disables the idle sweep
}

// WorldConfig defines fields of world config
type WorldConfig struct {
	HTTPIp             string
	HTTPPort           int
	LogFile            string
	LogStderr          bool
	LogLevel           string
	GoMaxProcs         int
	LoadReportInterval time.Duration // 0 disables load reports
}

// LinkConfig defines fields of the portal <-> world link config
type LinkConfig struct {
	Ip                 string
	Port               int
	PendingQueueMaxLen int
}

// MoorMudConfig defines the total config file structure
type MoorMudConfig struct {
	Portal PortalConfig
	World  WorldConfig
	Link   LinkConfig
}

// SetConfigFile sets the config file path (moormud.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of moormud.ini
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total MoorMud config
func Get() *MoorMudConfig {
	configLock.Lock()
	defer configLock.Unlock() // protect concurrent access from multiple goroutines
	if moorMudConfig == nil {
		moorMudConfig = readMoorMudConfig()
	}
	return moorMudConfig
}

// Reload forces the config to be reloaded from file
func Reload() *MoorMudConfig {
	configLock.Lock()
	moorMudConfig = nil
	configLock.Unlock()

	return Get()
}

// GetPortal gets the portal config
func GetPortal() *PortalConfig {
	return &Get().Portal
}

// GetWorld gets the world config
func GetWorld() *WorldConfig {
	return &Get().World
}

// GetLink gets the link config
func GetLink() *LinkConfig {
	return &Get().Link
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readMoorMudConfig() *MoorMudConfig {
	config := MoorMudConfig{}
	setPortalDefaults(&config.Portal)
	setWorldDefaults(&config.World)
	setLinkDefaults(&config.Link)

	mmlog.Infof("Using config file: %s", configFilePath)
	iniFile, err := ini.Load(configFilePath)
	checkConfigError(err, "")

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == "default" {
			continue
		}

		switch secName {
		case "portal":
			readPortalConfig(sec, &config.Portal)
		case "world":
			readWorldConfig(sec, &config.World)
		case "link":
			readLinkConfig(sec, &config.Link)
		default:
			mmlog.Errorf("unknown section: %s", secName)
		}
	}

	validateConfig(&config)
	return &config
}

func setPortalDefaults(pc *PortalConfig) {
	pc.Ip = "0.0.0.0"
	pc.Port = 4000
	pc.TLSPort = 0
	pc.KCPPort = 0
	pc.HTTPIp = _DEFAULT_HTTP_IP
	pc.HTTPPort = 0 // pprof & websocket not enabled by default
	pc.LogFile = "portal.log"
	pc.LogStderr = true
	pc.LogLevel = _DEFAULT_LOG_LEVEL
	pc.GoMaxProcs = 0
	pc.CompressConnection = false
	pc.RSAKey = "rsa.key"
	pc.RSACertificate = "rsa.crt"
	pc.IdleTimeout = 0
}

func setWorldDefaults(wc *WorldConfig) {
	wc.HTTPIp = _DEFAULT_HTTP_IP
	wc.HTTPPort = 0
	wc.LogFile = "world.log"
	wc.LogStderr = true
	wc.LogLevel = _DEFAULT_LOG_LEVEL
	wc.GoMaxProcs = 0
	wc.LoadReportInterval = consts.WORLD_LOAD_REPORT_INTERVAL
}

func setLinkDefaults(lc *LinkConfig) {
	lc.Ip = _DEFAULT_LOCALHOST_IP
	lc.Port = 4001
	lc.PendingQueueMaxLen = consts.LINK_PENDING_QUEUE_MAX_LEN
}

func readPortalConfig(sec *ini.Section, pc *PortalConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "ip":
			pc.Ip = key.MustString(pc.Ip)
		case "port":
			pc.Port = key.MustInt(pc.Port)
		case "tls_port":
			pc.TLSPort = key.MustInt(pc.TLSPort)
		case "kcp_port":
			pc.KCPPort = key.MustInt(pc.KCPPort)
		case "http_ip":
			pc.HTTPIp = key.MustString(pc.HTTPIp)
		case "http_port":
			pc.HTTPPort = key.MustInt(pc.HTTPPort)
		case "log_file":
			pc.LogFile = key.MustString(pc.LogFile)
		case "log_stderr":
			pc.LogStderr = key.MustBool(pc.LogStderr)
		case "log_level":
			pc.LogLevel = key.MustString(pc.LogLevel)
		case "gomaxprocs":
			pc.GoMaxProcs = key.MustInt(pc.GoMaxProcs)
		case "compress_connection":
			pc.CompressConnection = key.MustBool(pc.CompressConnection)
		case "rsa_key":
			pc.RSAKey = key.MustString(pc.RSAKey)
		case "rsa_certificate":
			pc.RSACertificate = key.MustString(pc.RSACertificate)
		case "idle_timeout":
			pc.IdleTimeout = time.Second * time.Duration(key.MustInt(int(pc.IdleTimeout/time.Second)))
		default:
			mmlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readWorldConfig(sec *ini.Section, wc *WorldConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "http_ip":
			wc.HTTPIp = key.MustString(wc.HTTPIp)
		case "http_port":
			wc.HTTPPort = key.MustInt(wc.HTTPPort)
		case "log_file":
			wc.LogFile = key.MustString(wc.LogFile)
		case "log_stderr":
			wc.LogStderr = key.MustBool(wc.LogStderr)
		case "log_level":
			wc.LogLevel = key.MustString(wc.LogLevel)
		case "gomaxprocs":
			wc.GoMaxProcs = key.MustInt(wc.GoMaxProcs)
		case "load_report_interval":
			wc.LoadReportInterval = time.Second * time.Duration(key.MustInt(int(wc.LoadReportInterval/time.Second)))
		default:
			mmlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readLinkConfig(sec *ini.Section, lc *LinkConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "ip":
			lc.Ip = key.MustString(lc.Ip)
		case "port":
			lc.Port = key.MustInt(lc.Port)
		case "pending_queue_max_len":
			lc.PendingQueueMaxLen = key.MustInt(lc.PendingQueueMaxLen)
		default:
			mmlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func validateConfig(config *MoorMudConfig) {
	pc := &config.Portal
	if pc.Port == 0 && pc.TLSPort == 0 && pc.KCPPort == 0 && pc.HTTPPort == 0 {
		mmlog.Fatalf("portal has no listener enabled: set port, tls_port, kcp_port or http_port")
	}
	if pc.TLSPort != 0 && (pc.RSAKey == "" || pc.RSACertificate == "") {
		mmlog.Fatalf("portal tls_port is enabled, but rsa_key or rsa_certificate is not set")
	}

	lc := &config.Link
	if lc.Ip == "" || lc.Port == 0 {
		mmlog.Fatalf("link ip/port is not set")
	}
	if lc.PendingQueueMaxLen <= 0 {
		lc.PendingQueueMaxLen = consts.LINK_PENDING_QUEUE_MAX_LEN
	}
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		mmlog.Fatalf("read config error: %s", msg)
	}
}
