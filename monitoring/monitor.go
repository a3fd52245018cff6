// Package monitoring turns a running simulation into a web server so that a
// device can be watched while a workload replays.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	// Enable profiling
	_ "net/http/pprof"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/idgen"
	"github.com/sarchlab/ftlsim/monitoring/web"
	"github.com/sarchlab/ftlsim/ssd"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor can turn a simulation into a server and allows external monitoring
// of the device.
type Monitor struct {
	mu         sync.Mutex
	device     *ssd.Device
	registry   *prometheus.Registry
	portNumber int
	ids        idgen.Generator

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		registry: prometheus.NewRegistry(),
		ids:      idgen.NewSequential(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber > 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterDevice sets the device to be monitored and exports its metrics.
func (m *Monitor) RegisterDevice(dev *ssd.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.device = dev
	NewMetrics(m.registry).Attach(dev)
}

// Locker returns the lock that guards the device. Whoever drives the device
// from another goroutine must hold it around each request.
func (m *Monitor) Locker() sync.Locker {
	return &m.mu
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.ids.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler serving the monitoring API and web page.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/wear", m.wear)
	r.HandleFunc("/api/snapshot", m.snapshot)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Router()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) deviceOr404(w http.ResponseWriter) *ssd.Device {
	if m.device == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("No device registered"))
		dieOnErr(err)
	}

	return m.device
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev := m.deviceOr404(w)
	if dev == nil {
		return
	}

	fmt.Fprintf(w, "{\"now\":%.0f}", dev.Now())
}

type statsRsp struct {
	Device             ssd.Stats `json:"device"`
	FTL                ftl.Stats `json:"ftl"`
	WriteAmplification float64   `json:"write_amplification"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev := m.deviceOr404(w)
	if dev == nil {
		return
	}

	devStats := dev.Stats()
	m.writeJSON(w, statsRsp{
		Device:             devStats,
		FTL:                dev.FTL().Stats(),
		WriteAmplification: devStats.WriteAmplification(),
	})
}

type wearRsp struct {
	Block      int    `json:"block"`
	State      string `json:"state"`
	EraseCount int    `json:"erase_count"`
}

func (m *Monitor) wear(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := parseListParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dev := m.deviceOr404(w)
	if dev == nil {
		return
	}

	states := dev.FTL().BlockStates()
	blocks := make([]wearRsp, len(states))

	for b, s := range states {
		blocks[b] = wearRsp{
			Block:      b,
			State:      s.String(),
			EraseCount: dev.FTL().EraseCount(b),
		}
	}

	m.writeJSON(w, sortAndSelectBlocks(blocks, sortMethod, limit, offset))
}

func parseListParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "block"
	}

	if sortMethod != "block" && sortMethod != "erases" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `block` and `erases`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return "", 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return "", 0, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, errors.New(name + " must not be negative")
	}

	return n, nil
}

func sortAndSelectBlocks(
	blocks []wearRsp,
	sortMethod string,
	limit, offset int,
) []wearRsp {
	if sortMethod == "erases" {
		sort.SliceStable(blocks, func(i, j int) bool {
			return blocks[i].EraseCount > blocks[j].EraseCount
		})
	}

	if offset > len(blocks) {
		offset = len(blocks)
	}

	blocks = blocks[offset:]

	if limit > 0 && limit < len(blocks) {
		blocks = blocks[:limit]
	}

	return blocks
}

func (m *Monitor) snapshot(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev := m.deviceOr404(w)
	if dev == nil {
		return
	}

	m.writeJSON(w, dev.FTL().Snapshot())
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) any {
	var component any

	if m.device != nil {
		switch name {
		case m.device.Name():
			component = m.device
		case m.device.FTL().Name():
			component = m.device.FTL()
		case m.device.Controller().Name():
			component = m.device.Controller()
		}
	}

	if component == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)
	}

	return component
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	process, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	m.writeJSON(w, prof)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
