package processor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/confkit/svcreg/internal/classifier"
	"github.com/confkit/svcreg/internal/detector"
	"github.com/confkit/svcreg/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type lifecycleState uint8

const (
	stateCreated lifecycleState = iota
	stateRunning
	stateDisposed
)

// Processor is the membership registry core: it classifies discovery
// events, owns the singleton role bindings and the server version record,
// and forwards bridge events to the pool.
//
// Mutations are expected from a single event-dispatch goroutine; read
// accessors are safe to call concurrently with dispatch. The internal lock
// is never held across a pool or detector call.
type Processor struct {
	serverAddress model.NodeAddress
	pool          model.BridgePool

	recorderBrewery    string
	sipRecorderBrewery string
	transcriberBrewery string

	mu            sync.RWMutex
	state         lifecycleState
	sipGateway    model.NodeAddress
	roomService   model.NodeAddress
	serverVersion model.Version
	hasServerVer  bool

	recorder    *detector.Detector
	sipRecorder *detector.Detector
	transcriber *detector.Detector

	Logger  zerolog.Logger
	metrics *metrics
}

func New(
	serverAddress model.NodeAddress,
	pool model.BridgePool,
	recorderBrewery string,
	sipRecorderBrewery string,
	transcriberBrewery string,
	logger zerolog.Logger,
) *Processor {
	pr := Processor{
		serverAddress:      serverAddress,
		pool:               pool,
		recorderBrewery:    recorderBrewery,
		sipRecorderBrewery: sipRecorderBrewery,
		transcriberBrewery: transcriberBrewery,
		Logger:             logger,
	}

	pr.metrics = newMetrics(&pr)

	return &pr
}

func (pr *Processor) Metrics() []prometheus.Collector {
	return pr.metrics.list()
}

// Init must be called exactly once before any event is dispatched.
// It validates required collaborators and constructs the detectors whose
// brewery name is configured; an absent name disables that detector.
func (pr *Processor) Init() error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	switch pr.state {
	case stateRunning:
		return ErrAlreadyInitialized
	case stateDisposed:
		return ErrDisposed
	}

	if pr.pool == nil {
		return errors.New("initializing registry: bridge pool is required")
	}

	if pr.recorderBrewery != "" {
		pr.recorder = detector.New(
			pr.recorderBrewery,
			pr.Logger.With().Str("scope", "recorder_detector").Logger(),
		)
	}

	if pr.sipRecorderBrewery != "" {
		pr.sipRecorder = detector.New(
			pr.sipRecorderBrewery,
			pr.Logger.With().Str("scope", "sip_recorder_detector").Logger(),
		)
	}

	if pr.transcriberBrewery != "" {
		pr.transcriber = detector.New(
			pr.transcriberBrewery,
			pr.Logger.With().Str("scope", "transcriber_detector").Logger(),
		)
	}

	pr.state = stateRunning
	pr.Logger.Info().Str("server", pr.serverAddress.String()).Msg("registry initialized")

	return nil
}

// Dispose clears all bindings and disposes owned detectors. The registry
// accepts no further events afterwards.
func (pr *Processor) Dispose() error {
	pr.mu.Lock()

	switch pr.state {
	case stateCreated:
		pr.mu.Unlock()
		return ErrNotInitialized
	case stateDisposed:
		pr.mu.Unlock()
		return ErrDisposed
	}

	pr.state = stateDisposed
	pr.sipGateway = ""
	pr.roomService = ""
	pr.serverVersion = model.Version{}
	pr.hasServerVer = false

	detectors := []*detector.Detector{pr.recorder, pr.sipRecorder, pr.transcriber}
	pr.recorder = nil
	pr.sipRecorder = nil
	pr.transcriber = nil
	pr.mu.Unlock()

	for _, d := range detectors {
		if d != nil {
			d.Dispose()
		}
	}

	pr.Logger.Info().Msg("registry disposed")

	return nil
}

// OnNodeDiscovered classifies the advertised capability set and applies
// the state-transition rule for the resulting role. Precedence is
// bridge > sip gateway > room service > server identity, first match wins.
// Nodes matching no known role are expected noise and change nothing.
func (pr *Processor) OnNodeDiscovered(
	addr model.NodeAddress,
	caps model.CapabilitySet,
	version model.Version,
) error {
	defer func(ts time.Time) {
		pr.metrics.dispatchTimeHist.Observe(float64(time.Since(ts)))
	}(time.Now())

	if err := pr.ensureRunning(); err != nil {
		return fmt.Errorf("handling node discovery: %w", err)
	}
	pr.metrics.discoveredCnt.Inc()

	role, ok := classifier.Classify(caps)
	if !ok {
		if pr.serverAddress != "" && addr == pr.serverAddress {
			pr.mu.Lock()
			if pr.state != stateRunning {
				pr.mu.Unlock()
				return nil
			}
			pr.serverVersion = version
			pr.hasServerVer = true
			pr.mu.Unlock()

			pr.Logger.Info().
				Str("node", addr.String()).
				Str("version", version.String()).
				Msg("detected server version")
			return nil
		}

		pr.metrics.ignoredCnt.Inc()
		pr.Logger.Debug().Str("node", addr.String()).Msg("node matches no known role")
		return nil
	}

	switch role {
	case model.RoleBridge:
		pr.Logger.Info().Str("node", addr.String()).Msg("discovered bridge")
		if err := pr.pool.Add(addr, version); err != nil {
			return fmt.Errorf("adding bridge %s to pool: %w", addr, err)
		}
	case model.RoleSipGateway:
		pr.bindRole(&pr.sipGateway, addr, model.RoleSipGateway)
	case model.RoleRoomService:
		pr.bindRole(&pr.roomService, addr, model.RoleRoomService)
	}

	return nil
}

// bindRole applies the first-wins policy for singleton roles: an already
// bound role keeps its address until an explicit loss event. A colliding
// re-discovery could be a duplicate broadcast or a genuine role conflict;
// the two are not distinguishable here, so it is counted and logged
// instead of being treated as an error.
//
// The lifecycle state is re-checked under the write lock: a Dispose racing
// a mid-flight dispatch must not have a binding written after it cleared
// them.
func (pr *Processor) bindRole(slot *model.NodeAddress, addr model.NodeAddress, role model.Role) {
	pr.mu.Lock()
	if pr.state != stateRunning {
		pr.mu.Unlock()
		return
	}
	prev := *slot
	if prev == "" {
		*slot = addr
	}
	pr.mu.Unlock()

	switch prev {
	case "":
		pr.Logger.Info().
			Str("node", addr.String()).
			Str("role", role.String()).
			Msg("discovered node")
	case addr:
		pr.Logger.Debug().
			Str("node", addr.String()).
			Str("role", role.String()).
			Msg("node already bound")
	default:
		pr.metrics.ignoredCnt.Inc()
		pr.Logger.Debug().
			Str("node", addr.String()).
			Str("bound", prev.String()).
			Str("role", role.String()).
			Msg("role already bound to another node, discovery ignored")
	}
}

// OnNodeLost reconciles a node going offline. Loss is address-keyed, not
// feature-keyed, so every concern is checked independently: a bridge
// removal must not be masked by a gateway unbind when addresses coincide.
// Losses for unknown addresses are a no-op.
func (pr *Processor) OnNodeLost(addr model.NodeAddress) error {
	defer func(ts time.Time) {
		pr.metrics.dispatchTimeHist.Observe(float64(time.Since(ts)))
	}(time.Now())

	if err := pr.ensureRunning(); err != nil {
		return fmt.Errorf("handling node loss: %w", err)
	}
	pr.metrics.lostCnt.Inc()

	if pr.pool.Contains(addr) {
		pr.Logger.Warn().Str("node", addr.String()).Msg("bridge went offline")
		if err := pr.pool.Remove(addr); err != nil {
			return fmt.Errorf("removing bridge %s from pool: %w", addr, err)
		}
	}

	pr.unbindRole(&pr.sipGateway, addr, model.RoleSipGateway)
	pr.unbindRole(&pr.roomService, addr, model.RoleRoomService)

	return nil
}

func (pr *Processor) unbindRole(slot *model.NodeAddress, addr model.NodeAddress, role model.Role) {
	pr.mu.Lock()
	if pr.state != stateRunning || *slot != addr {
		pr.mu.Unlock()
		return
	}
	*slot = ""
	pr.mu.Unlock()

	pr.Logger.Warn().
		Str("node", addr.String()).
		Str("role", role.String()).
		Msg("node went offline")
}

// OnHealthCheckFailed evicts a bridge from the pool. Health failures are
// defined only for bridges, and the pool owns the authoritative bridge
// set, so the removal is forwarded unconditionally.
func (pr *Processor) OnHealthCheckFailed(addr model.NodeAddress) error {
	defer func(ts time.Time) {
		pr.metrics.dispatchTimeHist.Observe(float64(time.Since(ts)))
	}(time.Now())

	if err := pr.ensureRunning(); err != nil {
		return fmt.Errorf("handling health check failure: %w", err)
	}
	pr.metrics.healthFailedCnt.Inc()

	pr.Logger.Warn().Str("node", addr.String()).Msg("health check failed, evicting bridge")
	if err := pr.pool.Remove(addr); err != nil {
		return fmt.Errorf("removing bridge %s from pool: %w", addr, err)
	}

	return nil
}

// SipGateway returns the currently bound SIP gateway address, if any.
func (pr *Processor) SipGateway() (model.NodeAddress, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return pr.sipGateway, pr.sipGateway != ""
}

// RoomService returns the currently bound room service address, if any.
func (pr *Processor) RoomService() (model.NodeAddress, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return pr.roomService, pr.roomService != ""
}

// ServerVersion returns the last observed version of the configured
// signalling server, if it has been seen.
func (pr *Processor) ServerVersion() (model.Version, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return pr.serverVersion, pr.hasServerVer
}

// BridgeVersion returns the version metadata of a registered bridge.
func (pr *Processor) BridgeVersion(addr model.NodeAddress) (model.Version, bool) {
	return pr.pool.Version(addr)
}

// RecorderDetector returns the recorder brewery detector, with
// ok == false when not configured.
func (pr *Processor) RecorderDetector() (*detector.Detector, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return pr.recorder, pr.recorder != nil
}

// SipRecorderDetector returns the SIP recorder brewery detector, with
// ok == false when not configured.
func (pr *Processor) SipRecorderDetector() (*detector.Detector, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return pr.sipRecorder, pr.sipRecorder != nil
}

// TranscriberDetector returns the transcriber brewery detector, with
// ok == false when not configured.
func (pr *Processor) TranscriberDetector() (*detector.Detector, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return pr.transcriber, pr.transcriber != nil
}

func (pr *Processor) ensureRunning() error {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	switch pr.state {
	case stateCreated:
		return ErrNotInitialized
	case stateDisposed:
		return ErrDisposed
	}

	return nil
}

func (pr *Processor) boundRolesCount() int {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	cnt := 0
	if pr.sipGateway != "" {
		cnt++
	}
	if pr.roomService != "" {
		cnt++
	}

	return cnt
}
