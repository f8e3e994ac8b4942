package consts

import "time"

// Tunable Options
const (
	// For Underlying Networking
	// BUFFERED_READ_BUFFSIZE is the read buffer size for buffered client connections
	BUFFERED_READ_BUFFSIZE = 16384
	// BUFFERED_WRITE_BUFFSIZE is the write buffer size for buffered client connections
	BUFFERED_WRITE_BUFFSIZE = 16384

	// CLIENT_PROXY_WRITE_BUFFER_SIZE is the kernel write buffer size for client connections
	CLIENT_PROXY_WRITE_BUFFER_SIZE = 1024 * 1024
	// CLIENT_PROXY_READ_BUFFER_SIZE is the kernel read buffer size for client connections
	CLIENT_PROXY_READ_BUFFER_SIZE = 1024 * 1024
	// CLIENT_PROXY_SET_TCP_NO_DELAY = true sets client connections to TcpNoDelay
	CLIENT_PROXY_SET_TCP_NO_DELAY = true
	// CLIENT_PROXY_READ_CHUNK_SIZE is the max bytes pulled off a client socket per read
	CLIENT_PROXY_READ_CHUNK_SIZE = 8192

	// For the Portal <-> World Link
	// LINK_WRITE_BUFFER_SIZE is the kernel write buffer size for the link connection
	LINK_WRITE_BUFFER_SIZE = 1024 * 1024
	// LINK_READ_BUFFER_SIZE is the kernel read buffer size for the link connection
	LINK_READ_BUFFER_SIZE = 1024 * 1024
	// LINK_FLUSH_INTERVAL is the auto-flush interval of the link connection
	LINK_FLUSH_INTERVAL = time.Millisecond * 10
	// LINK_RECONNECT_BACKOFF_MIN is the first reconnect delay after the link breaks
	LINK_RECONNECT_BACKOFF_MIN = time.Millisecond * 500
	// LINK_RECONNECT_BACKOFF_MAX caps the exponential reconnect backoff
	LINK_RECONNECT_BACKOFF_MAX = time.Second * 10
	// LINK_PENDING_QUEUE_MAX_LEN bounds the messages buffered while the link is not live
	LINK_PENDING_QUEUE_MAX_LEN = 1000
	// LINK_HEARTBEAT_INTERVAL is how often the portal heartbeats an idle live link
	LINK_HEARTBEAT_INTERVAL = time.Second * 5

	// For the World Service
	// WORLD_SERVICE_TICK_INTERVAL is the tick interval to tick timers in the world service
	WORLD_SERVICE_TICK_INTERVAL = time.Millisecond * 10
	// WORLD_SERVICE_PACKET_QUEUE_SIZE is the packet queue size of the world service
	WORLD_SERVICE_PACKET_QUEUE_SIZE = 10000
	// WORLD_LOAD_REPORT_INTERVAL is the default interval for world load reports over the link
	WORLD_LOAD_REPORT_INTERVAL = time.Second * 10

	// For the Portal Service
	// PORTAL_IDLE_SWEEP_INTERVAL is how often the portal checks sessions for idle timeout
	PORTAL_IDLE_SWEEP_INTERVAL = time.Second * 30
	// TELNET_NEGOTIATION_WINDOW is how long a fresh telnet session may negotiate capabilities
	TELNET_NEGOTIATION_WINDOW = time.Millisecond * 500
)

// Operation Monitor Options
const (
	// OPMON_DUMP_INTERVAL is how often the operation monitor dumps stats to stderr, 0 disables
	OPMON_DUMP_INTERVAL = time.Minute * 5
	// OPMON_WARN_THRESHOLD is how long an envelope dispatch may take before a warning is logged
	OPMON_WARN_THRESHOLD = time.Millisecond * 100
)

// Debug Options
const (
	// DEBUG_PACKETS prints packet send/recv debug logs
	DEBUG_PACKETS = false
	// DEBUG_CLIENTS prints client connection debug logs
	DEBUG_CLIENTS = false
	// DEBUG_LINK prints link message debug logs
	DEBUG_LINK = false
)
