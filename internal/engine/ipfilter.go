package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/anacrolix/torrent/iplist"
)

// blockedAccess is the highest access value that still blocks a range.
const blockedAccess = 127

// LoadIPFilter reads the blocklist at path, see ParseIPFilter.
func LoadIPFilter(path string) (*iplist.IPList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ip filter: %w", err)
	}
	defer f.Close()
	return ParseIPFilter(f)
}

// ParseIPFilter reads "first - last access" IPv4 ranges, one per line. Ranges
// with an access value above 127 are allowed and skipped. Lines in the
// PeerGuardian "description:first-last" format are accepted too.
func ParseIPFilter(r io.Reader) (*iplist.IPList, error) {
	var ranges []iplist.Range
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rng, blocked, err := parseAccessLine(line)
		if err != nil {
			p2p, ok, p2pErr := iplist.ParseBlocklistP2PLine([]byte(line))
			if p2pErr != nil || !ok {
				return nil, fmt.Errorf("ip filter line %d: %v", n, err)
			}
			rng, blocked = p2p, true
		}
		if blocked {
			ranges = append(ranges, rng)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ip filter: %w", err)
	}
	sort.Slice(ranges, func(i, j int) bool {
		return bytes.Compare(ranges[i].First, ranges[j].First) < 0
	})
	return iplist.New(ranges), nil
}

func parseAccessLine(line string) (iplist.Range, bool, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[1] != "-" {
		return iplist.Range{}, false, fmt.Errorf("want \"first - last access\", got %q", line)
	}
	first := net.ParseIP(fields[0]).To4()
	last := net.ParseIP(fields[2]).To4()
	if first == nil || last == nil {
		return iplist.Range{}, false, fmt.Errorf("bad IPv4 range %s - %s", fields[0], fields[2])
	}
	if bytes.Compare(first, last) > 0 {
		return iplist.Range{}, false, fmt.Errorf("range %s - %s is reversed", fields[0], fields[2])
	}
	access, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return iplist.Range{}, false, fmt.Errorf("bad access value %q", fields[3])
	}
	return iplist.Range{First: first, Last: last, Description: "ip filter"}, access <= blockedAccess, nil
}
