package peers

import (
	"io/ioutil"
	"path/filepath"
	"sync"
)

const jsonPeerPath = "peers.json"

// JSONPeers is used to provide peer persistence on disk in the form
// of a JSON file. This allows human operators to manipulate the file.
type JSONPeers struct {
	l    sync.Mutex
	path string
}

// NewJSONPeers creates a new JSONPeers store.
func NewJSONPeers(base string) *JSONPeers {
	path := filepath.Join(base, jsonPeerPath)
	store := &JSONPeers{
		path: path,
	}
	return store
}

// Path returns the location of the peers file.
func (j *JSONPeers) Path() string {
	return j.path
}

// PeerSet reads the peers file.
func (j *JSONPeers) PeerSet() (*PeerSet, error) {
	j.l.Lock()
	defer j.l.Unlock()

	// Read the file
	buf, err := ioutil.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	// Check for no peers
	if len(buf) == 0 {
		return NewPeerSet(nil), nil
	}

	return NewPeerSetFromPeerSliceBytes(buf)
}

// SetPeerSet writes the peers file.
func (j *JSONPeers) SetPeerSet(peerSet *PeerSet) error {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := peerSet.Marshal()
	if err != nil {
		return err
	}

	return ioutil.WriteFile(j.path, buf, 0644)
}
