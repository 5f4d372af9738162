package processor_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/confkit/svcreg/internal/classifier"
	"github.com/confkit/svcreg/internal/model"
	"github.com/confkit/svcreg/internal/processor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bridgeCaps = model.CapabilitySet{
		classifier.FeatureColibri,
		classifier.FeatureDtlsSrtp,
		classifier.FeatureIceUdp,
		classifier.FeatureRawUdp,
	}
	gatewayCaps = model.CapabilitySet{
		classifier.FeatureSipGateway,
		classifier.FeatureRayo,
	}
	mucCaps = model.CapabilitySet{classifier.FeatureMuc}
)

type fakePool struct {
	mu        sync.Mutex
	bridges   map[model.NodeAddress]model.Version
	added     []model.NodeAddress
	removed   []model.NodeAddress
	addErr    error
	removeErr error
}

func newFakePool() *fakePool {
	return &fakePool{bridges: map[model.NodeAddress]model.Version{}}
}

func (p *fakePool) Add(addr model.NodeAddress, version model.Version) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.addErr != nil {
		return p.addErr
	}
	p.added = append(p.added, addr)
	p.bridges[addr] = version
	return nil
}

func (p *fakePool) Remove(addr model.NodeAddress) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removeErr != nil {
		return p.removeErr
	}
	p.removed = append(p.removed, addr)
	delete(p.bridges, addr)
	return nil
}

func (p *fakePool) Contains(addr model.NodeAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, known := p.bridges[addr]
	return known
}

func (p *fakePool) Version(addr model.NodeAddress) (model.Version, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	version, known := p.bridges[addr]
	return version, known
}

func (p *fakePool) Metrics() []prometheus.Collector { return nil }

func newRunningProcessor(t *testing.T, pool model.BridgePool) *processor.Processor {
	t.Helper()

	pr := processor.New("server.example.net", pool, "", "", "", zerolog.Nop())
	require.NoError(t, pr.Init())

	return pr
}

func Test_Accessors_Unset(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	_, ok := pr.SipGateway()
	assert.False(t, ok)

	_, ok = pr.RoomService()
	assert.False(t, ok)

	_, ok = pr.ServerVersion()
	assert.False(t, ok)
}

func Test_OnNodeDiscovered_Bridge(t *testing.T) {
	pool := newFakePool()
	pr := newRunningProcessor(t, pool)

	err := pr.OnNodeDiscovered(
		"bridge1.example.net",
		bridgeCaps,
		model.Version{Name: "bridge", Version: "2.1"},
	)
	require.NoError(t, err)

	assert.Equal(t, []model.NodeAddress{"bridge1.example.net"}, pool.added)

	version, ok := pr.BridgeVersion("bridge1.example.net")
	require.True(t, ok)
	assert.Equal(t, "2.1", version.Version)

	// Bridges never occupy a singleton slot.
	_, ok = pr.SipGateway()
	assert.False(t, ok)
}

func Test_OnNodeDiscovered_BridgeDuplicateForwarded(t *testing.T) {
	pool := newFakePool()
	pr := newRunningProcessor(t, pool)

	require.NoError(t, pr.OnNodeDiscovered("bridge1.example.net", bridgeCaps, model.Version{}))
	require.NoError(t, pr.OnNodeDiscovered("bridge1.example.net", bridgeCaps, model.Version{}))

	// No local uniqueness check: the pool is responsible for idempotence.
	assert.Len(t, pool.added, 2)
}

func Test_OnNodeDiscovered_SipGateway_FirstWins(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	require.NoError(t, pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{}))
	require.NoError(t, pr.OnNodeDiscovered("gw-b.example.net", gatewayCaps, model.Version{}))

	addr, ok := pr.SipGateway()
	require.True(t, ok)
	assert.Equal(t, model.NodeAddress("gw-a.example.net"), addr)
}

func Test_OnNodeDiscovered_SipGateway_SameAddressNoop(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	require.NoError(t, pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{}))
	require.NoError(t, pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{}))

	addr, ok := pr.SipGateway()
	require.True(t, ok)
	assert.Equal(t, model.NodeAddress("gw-a.example.net"), addr)
}

func Test_OnNodeDiscovered_RoomService(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	require.NoError(t, pr.OnNodeDiscovered("conference.example.net", mucCaps, model.Version{}))

	addr, ok := pr.RoomService()
	require.True(t, ok)
	assert.Equal(t, model.NodeAddress("conference.example.net"), addr)

	// Second discovery from another address is ignored.
	require.NoError(t, pr.OnNodeDiscovered("conference2.example.net", mucCaps, model.Version{}))

	addr, _ = pr.RoomService()
	assert.Equal(t, model.NodeAddress("conference.example.net"), addr)
}

func Test_OnNodeDiscovered_ServerVersion(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	err := pr.OnNodeDiscovered(
		"server.example.net",
		model.CapabilitySet{"http://jabber.org/protocol/disco#info"},
		model.Version{Name: "server", Version: "0.12"},
	)
	require.NoError(t, err)

	version, ok := pr.ServerVersion()
	require.True(t, ok)
	assert.Equal(t, "0.12", version.Version)

	// Unlike singleton roles, the version record is last-wins: the server
	// is a fixed peer whose version may legitimately be re-observed.
	require.NoError(t, pr.OnNodeDiscovered(
		"server.example.net",
		model.CapabilitySet{},
		model.Version{Name: "server", Version: "0.13"},
	))

	version, _ = pr.ServerVersion()
	assert.Equal(t, "0.13", version.Version)
}

func Test_OnNodeDiscovered_ServerAddressWithRoleCaps(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	// Capability classification takes precedence over identity matching.
	require.NoError(t, pr.OnNodeDiscovered("server.example.net", gatewayCaps, model.Version{}))

	addr, ok := pr.SipGateway()
	require.True(t, ok)
	assert.Equal(t, model.NodeAddress("server.example.net"), addr)

	_, ok = pr.ServerVersion()
	assert.False(t, ok)
}

func Test_OnNodeDiscovered_UnrecognizedNoise(t *testing.T) {
	pool := newFakePool()
	pr := newRunningProcessor(t, pool)

	err := pr.OnNodeDiscovered(
		"pubsub.example.net",
		model.CapabilitySet{"http://jabber.org/protocol/pubsub"},
		model.Version{},
	)
	require.NoError(t, err)

	assert.Empty(t, pool.added)

	_, ok := pr.SipGateway()
	assert.False(t, ok)
	_, ok = pr.RoomService()
	assert.False(t, ok)
}

func Test_OnNodeLost_UnknownAddressIdempotent(t *testing.T) {
	pool := newFakePool()
	pr := newRunningProcessor(t, pool)

	require.NoError(t, pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{}))

	require.NoError(t, pr.OnNodeLost("stranger.example.net"))

	addr, ok := pr.SipGateway()
	require.True(t, ok)
	assert.Equal(t, model.NodeAddress("gw-a.example.net"), addr)
	assert.Empty(t, pool.removed)
}

func Test_OnNodeLost_RebindAfterLoss(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	require.NoError(t, pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{}))
	require.NoError(t, pr.OnNodeLost("gw-a.example.net"))

	_, ok := pr.SipGateway()
	assert.False(t, ok)

	require.NoError(t, pr.OnNodeDiscovered("gw-b.example.net", gatewayCaps, model.Version{}))

	addr, ok := pr.SipGateway()
	require.True(t, ok)
	assert.Equal(t, model.NodeAddress("gw-b.example.net"), addr)
}

func Test_OnNodeLost_Bridge(t *testing.T) {
	pool := newFakePool()
	pr := newRunningProcessor(t, pool)

	require.NoError(t, pr.OnNodeDiscovered("bridge1.example.net", bridgeCaps, model.Version{}))
	require.NoError(t, pr.OnNodeLost("bridge1.example.net"))

	assert.Equal(t, []model.NodeAddress{"bridge1.example.net"}, pool.removed)
}

func Test_OnNodeLost_CoincidingAddressHandledIndependently(t *testing.T) {
	pool := newFakePool()
	pr := newRunningProcessor(t, pool)

	// The same address registered both as a bridge and as the gateway:
	// a single loss must clear both, not stop at the first handler.
	require.NoError(t, pr.OnNodeDiscovered("node.example.net", bridgeCaps, model.Version{}))
	require.NoError(t, pr.OnNodeDiscovered("node.example.net", gatewayCaps, model.Version{}))

	require.NoError(t, pr.OnNodeLost("node.example.net"))

	assert.Equal(t, []model.NodeAddress{"node.example.net"}, pool.removed)
	_, ok := pr.SipGateway()
	assert.False(t, ok)
}

func Test_OnHealthCheckFailed_AlwaysForwarded(t *testing.T) {
	pool := newFakePool()
	pr := newRunningProcessor(t, pool)

	// Not registered anywhere: the pool owns the authoritative bridge set,
	// so the removal is forwarded regardless of local state.
	require.NoError(t, pr.OnHealthCheckFailed("bridge1.example.net"))
	assert.Equal(t, []model.NodeAddress{"bridge1.example.net"}, pool.removed)

	// Bound to a singleton role: the binding stays untouched.
	require.NoError(t, pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{}))
	require.NoError(t, pr.OnHealthCheckFailed("gw-a.example.net"))

	addr, ok := pr.SipGateway()
	require.True(t, ok)
	assert.Equal(t, model.NodeAddress("gw-a.example.net"), addr)
	assert.Equal(
		t,
		[]model.NodeAddress{"bridge1.example.net", "gw-a.example.net"},
		pool.removed,
	)
}

func Test_Dispatch_BeforeInit(t *testing.T) {
	pr := processor.New("server.example.net", newFakePool(), "", "", "", zerolog.Nop())

	err := pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrNotInitialized))
}

func Test_Init_Twice(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	err := pr.Init()

	assert.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrAlreadyInitialized))
}

func Test_Init_NilPool(t *testing.T) {
	pr := processor.New("server.example.net", nil, "", "", "", zerolog.Nop())

	err := pr.Init()

	assert.Error(t, err)
}

func Test_Dispose(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	require.NoError(t, pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{}))
	require.NoError(t, pr.Dispose())

	err := pr.OnNodeLost("gw-a.example.net")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrDisposed))

	err = pr.Init()
	assert.True(t, errors.Is(err, processor.ErrDisposed))

	err = pr.Dispose()
	assert.True(t, errors.Is(err, processor.ErrDisposed))
}

func Test_PoolFailurePropagated(t *testing.T) {
	pool := newFakePool()
	pool.addErr = errors.New("subscription lost")
	pr := newRunningProcessor(t, pool)

	err := pr.OnNodeDiscovered("bridge1.example.net", bridgeCaps, model.Version{})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, pool.addErr))
}

// Mutations are serialized and reads must observe consistent, untorn
// bindings while dispatch is in flight. Run with -race.
func Test_ReadsDuringDispatch(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_ = pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{})
			_ = pr.OnNodeDiscovered("conference.example.net", mucCaps, model.Version{})
			_ = pr.OnNodeDiscovered(
				"server.example.net",
				model.CapabilitySet{},
				model.Version{Name: "server", Version: "0.12"},
			)
			_ = pr.OnNodeLost("gw-a.example.net")
			_ = pr.OnNodeLost("conference.example.net")
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			if addr, ok := pr.SipGateway(); ok {
				assert.Equal(t, model.NodeAddress("gw-a.example.net"), addr)
			} else {
				assert.Empty(t, addr)
			}

			if addr, ok := pr.RoomService(); ok {
				assert.Equal(t, model.NodeAddress("conference.example.net"), addr)
			} else {
				assert.Empty(t, addr)
			}

			if version, ok := pr.ServerVersion(); ok {
				assert.Equal(t, "0.12", version.Version)
			}
		}
	}()

	wg.Wait()
}

// A Dispose racing a mid-flight dispatch must never leave a binding
// written after Dispose cleared them.
func Test_Dispose_RacingDispatch(t *testing.T) {
	for i := 0; i < 100; i++ {
		pr := processor.New("server.example.net", newFakePool(), "", "", "", zerolog.Nop())
		require.NoError(t, pr.Init())

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			_ = pr.OnNodeDiscovered("gw-a.example.net", gatewayCaps, model.Version{})
			_ = pr.OnNodeDiscovered(
				"server.example.net",
				model.CapabilitySet{},
				model.Version{Name: "server", Version: "0.12"},
			)
		}()

		go func() {
			defer wg.Done()
			_ = pr.Dispose()
		}()

		wg.Wait()

		_, ok := pr.SipGateway()
		assert.False(t, ok)
		_, ok = pr.ServerVersion()
		assert.False(t, ok)
	}
}

func Test_Detectors_Unconfigured(t *testing.T) {
	pr := newRunningProcessor(t, newFakePool())

	_, ok := pr.RecorderDetector()
	assert.False(t, ok)
	_, ok = pr.SipRecorderDetector()
	assert.False(t, ok)
	_, ok = pr.TranscriberDetector()
	assert.False(t, ok)
}

func Test_Detectors_Configured(t *testing.T) {
	pr := processor.New(
		"server.example.net",
		newFakePool(),
		"recorder@conference.example.net",
		"",
		"transcriber@conference.example.net",
		zerolog.Nop(),
	)
	require.NoError(t, pr.Init())

	recorder, ok := pr.RecorderDetector()
	require.True(t, ok)
	assert.Equal(t, "recorder@conference.example.net", recorder.Brewery())

	_, ok = pr.SipRecorderDetector()
	assert.False(t, ok)

	transcriber, ok := pr.TranscriberDetector()
	require.True(t, ok)
	assert.Equal(t, "transcriber@conference.example.net", transcriber.Brewery())

	recorder.InstanceUp("recorder1.example.net", model.Version{})
	require.NoError(t, pr.Dispose())

	// Dispose tears detectors down with the registry.
	assert.Zero(t, recorder.Count())
}
