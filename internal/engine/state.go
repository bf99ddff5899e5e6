package engine

import (
	"fmt"
	"net"

	"github.com/anacrolix/dht/v2"
	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/bencode"
)

// sessionState is the global state persisted between runs.
type sessionState struct {
	PeerID   string   `bencode:"peer-id,omitempty"`
	DHTNodes []string `bencode:"dht-nodes,omitempty"`
}

// SaveState captures the peer id and the DHT routing table.
func (c *Client) SaveState() ([]byte, error) {
	id := c.client.PeerID()
	st := sessionState{PeerID: string(id[:])}
	for _, s := range c.client.DhtServers() {
		w, ok := s.(torrent.AnacrolixDhtServerWrapper)
		if !ok {
			continue
		}
		for _, ni := range w.Server.Nodes() {
			st.DHTNodes = append(st.DHTNodes, ni.Addr.String())
		}
	}
	b, err := bencode.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return b, nil
}

func applyState(cfg *torrent.ClientConfig, blob []byte) error {
	if len(blob) == 0 {
		return nil
	}
	var st sessionState
	if err := bencode.Unmarshal(blob, &st); err != nil {
		return fmt.Errorf("decode session state: %w", err)
	}
	if len(st.PeerID) == 20 {
		cfg.PeerID = st.PeerID
	}
	if len(st.DHTNodes) == 0 {
		return nil
	}
	nodes := st.DHTNodes
	cfg.ConfigureAnacrolixDhtServer = func(sc *dht.ServerConfig) {
		fallback := sc.StartingNodes
		sc.StartingNodes = func() ([]dht.Addr, error) {
			var addrs []dht.Addr
			for _, n := range nodes {
				ua, err := net.ResolveUDPAddr("udp", n)
				if err != nil {
					continue
				}
				addrs = append(addrs, dht.NewAddr(ua))
			}
			if len(addrs) == 0 && fallback != nil {
				return fallback()
			}
			return addrs, nil
		}
	}
	return nil
}
