// Package monitoring turns a scenario run into a small web server that
// allows external observation of the run in progress: lifecycle state, game
// clock, watchdog health, process resources, CPU profiles, a state
// inspection endpoint, and a websocket feed of completed ticks.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling.
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/drivelab/scenrunner/runner"
)

// Monitor observes one Runner and serves its state over HTTP.
type Monitor struct {
	runner     *runner.Runner
	portNumber int
	url        string

	feed *liveFeed
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{feed: newLiveFeed()}
}

// WithPortNumber sets the port number of the monitor server.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterRunner registers the runner to be monitored.
func (m *Monitor) RegisterRunner(r *runner.Runner) {
	m.runner = r
}

// OnTick implements runner.TickObserver; completed ticks are forwarded to
// the websocket feed.
func (m *Monitor) OnTick(rec runner.TickRecord) {
	m.feed.broadcast(rec)
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/clock", m.clock)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/inspect", m.inspectRunner)
	r.HandleFunc("/api/live", m.feed.serve)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	m.url = fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring scenario run with %s\n", m.url)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()
}

// OpenDashboard opens the monitor page in the default browser. StartServer
// must have been called.
func (m *Monitor) OpenDashboard() {
	if m.url == "" {
		return
	}

	_ = browser.OpenURL(m.url + "/api/status")
}

type statusRsp struct {
	State           string  `json:"state"`
	Ticks           uint64  `json:"ticks"`
	GameTime        float64 `json:"game_time"`
	WorldWatchdogOK bool    `json:"world_watchdog_ok"`
	AgentWatchdogOK bool    `json:"agent_watchdog_ok"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	worldOK, agentOK := m.runner.WatchdogStatus()

	rsp := statusRsp{
		State:           m.runner.State().String(),
		Ticks:           m.runner.TickCount(),
		GameTime:        float64(m.runner.Clock().CurrentTime()),
		WorldWatchdogOK: worldOK,
		AgentWatchdogOK: agentOK,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) clock(w http.ResponseWriter, _ *http.Request) {
	now := m.runner.Clock().CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) inspectRunner(w http.ResponseWriter, _ *http.Request) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.runner)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
