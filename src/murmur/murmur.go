package murmur

import (
	"fmt"
	"os"

	"github.com/mosaicnetworks/murmur/src/broadcast"
	"github.com/mosaicnetworks/murmur/src/commitlog"
	"github.com/mosaicnetworks/murmur/src/config"
	"github.com/mosaicnetworks/murmur/src/counter"
	"github.com/mosaicnetworks/murmur/src/kv"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/mosaicnetworks/murmur/src/service"
	"github.com/mosaicnetworks/murmur/src/txn"
	"github.com/sirupsen/logrus"
)

// Murmur is a struct containing the key parts of a murmur node
type Murmur struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Peers     *peers.PeerSet
	Store     kv.Store
	Service   *service.Service
	logger    *logrus.Entry

	// role components, set according to Config.Role
	Broadcaster *broadcast.Broadcaster
	Counter     *counter.Counter
	Log         commitlog.Log
	TxnStore    *txn.Store
}

// NewMurmur is a factory method to produce a Murmur instance.
func NewMurmur(c *config.Config) *Murmur {
	engine := &Murmur{
		Config: c,
		logger: c.LogEntry(),
	}

	return engine
}

func (m *Murmur) tcp() bool {
	return m.Config.Transport == config.TCPTransport
}

func (m *Murmur) initPeers() error {
	if !m.tcp() {
		return nil
	}

	peerStore := peers.NewJSONPeers(m.Config.DataDir)

	peerSet, err := peerStore.PeerSet()
	if err != nil {
		return err
	}

	if _, ok := peerSet.ByID[m.Config.ID]; !ok {
		return fmt.Errorf("node %q is not listed in %s", m.Config.ID, peerStore.Path())
	}

	m.Peers = peerSet

	return nil
}

func (m *Murmur) initTransport() error {
	switch m.Config.Transport {
	case config.StdioTransport:
		in, out := m.Config.Stdin, m.Config.Stdout
		if in == nil {
			in = os.Stdin
		}
		if out == nil {
			out = os.Stdout
		}
		m.Transport = net.NewStdioTransport(in, out, m.logger.WithField("transport", "stdio"))
	case config.TCPTransport:
		trans, err := net.NewTCPTransport(
			m.Config.BindAddr,
			m.Config.AdvertiseAddr,
			m.Config.MaxPool,
			m.Config.RPCTimeout,
			m.logger.WithField("transport", "tcp"),
		)
		if err != nil {
			return err
		}

		for _, p := range m.Peers.Peers {
			trans.SetPeerAddr(p.ID, p.NetAddr)
		}

		m.Transport = trans
	default:
		return fmt.Errorf("unknown transport %q", m.Config.Transport)
	}

	return nil
}

func (m *Murmur) initNode() error {
	m.Node = node.NewNode(
		node.NewConfig(m.Config.RPCTimeout, m.Config.Logger()),
		m.Transport,
	)
	return nil
}

func (m *Murmur) initStore() error {
	switch m.Config.Role {
	case CounterRole, KafkaKVRole:
		if m.Config.KV != kv.SeqKV && m.Config.KV != kv.LinKV {
			return fmt.Errorf("unknown store service %q", m.Config.KV)
		}
		m.Store = kv.NewClient(m.Node, m.Config.KV)
	case SeqKVRole, LinKVRole:
		if !m.Config.Store {
			m.Store = kv.NewInmemStore()
			m.logger.Debug("created new in-mem store")
			return nil
		}

		m.logger.WithField("path", m.Config.DatabaseDir).Debug("Attempting to load or create database")
		store, err := kv.NewBadgerStore(m.Config.DatabaseDir, m.logger)
		if err != nil {
			return err
		}
		m.Store = store
	}

	return nil
}

func (m *Murmur) initRole() error {
	logger := m.Config.Logger().WithField("prefix", m.Config.Role)

	switch m.Config.Role {
	case EchoRole:
		registerEcho(m.Node)
	case UniqueIDsRole:
		registerUniqueIDs(m.Node)
	case BroadcastRole:
		m.Broadcaster = broadcast.NewBroadcaster(m.Node, m.Config.GossipInterval, logger)
	case CounterRole:
		m.Counter = counter.NewCounter(m.Node, m.Store, counter.Config{
			StrictStore: m.Config.StrictStore,
		}, logger)
	case KafkaRole:
		m.Log = commitlog.NewInmemLog(m.Config.PollBatch)
		commitlog.NewServer(m.Node, m.Log, logger)
	case KafkaKVRole:
		m.Log = commitlog.NewStoreLog(m.Store, m.Config.PollBatch, m.Config.StrictStore, logger)
		commitlog.NewServer(m.Node, m.Log, logger)
	case TxnRole:
		m.TxnStore = txn.NewStore(m.Node, logger)
	case SeqKVRole, LinKVRole:
		kv.NewService(m.Node, m.Store, logger)
	default:
		return fmt.Errorf("unknown role %q", m.Config.Role)
	}

	return nil
}

func (m *Murmur) initService() error {
	if m.tcp() && !m.Config.NoService && m.Config.ServiceAddr != "" {
		m.Service = service.NewService(
			m.Config.ServiceAddr,
			m.Node,
			m.Peers,
			m.logger.WithField("prefix", "service"),
		)
	}
	return nil
}

// Init initialises the murmur node based on its configuration. It reads
// peers.json in TCP mode, creates the transport, the node and the store, and
// registers the handlers of the role.
func (m *Murmur) Init() error {
	m.logger.WithFields(logrus.Fields{
		"role":      m.Config.Role,
		"transport": m.Config.Transport,
	}).Debug("Init")

	if err := m.initPeers(); err != nil {
		return err
	}

	if err := m.initTransport(); err != nil {
		return err
	}

	if err := m.initNode(); err != nil {
		return err
	}

	if err := m.initStore(); err != nil {
		return err
	}

	if err := m.initRole(); err != nil {
		return err
	}

	if err := m.initService(); err != nil {
		return err
	}

	return nil
}

// Run starts the node and blocks until it shuts down. Under stdio this happens
// when stdin is closed. In a TCP cluster, the node initialises itself from
// peers.json and runs until Shutdown is called.
func (m *Murmur) Run() {
	if m.Service != nil {
		go m.Service.Serve()
	}

	if !m.tcp() {
		m.Node.Run()
		m.closeStore()
		return
	}

	m.Node.RunAsync()

	if err := m.Node.Init(m.Config.ID, m.Peers.IDs()); err != nil {
		m.logger.WithError(err).Error("Init")
		m.Shutdown()
	}

	<-m.Node.Done()
	m.closeStore()
}

// Shutdown stops the node.
func (m *Murmur) Shutdown() {
	m.Node.Shutdown()
}

func (m *Murmur) closeStore() {
	if s, ok := m.Store.(*kv.BadgerStore); ok {
		if err := s.Close(); err != nil {
			m.logger.WithError(err).Error("Closing store")
		}
	}
}
