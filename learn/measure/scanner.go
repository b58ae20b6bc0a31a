package measure

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/airlearn/airlearn/learn"
)

// stationHeader opens the client section of a station-list CSV.
const stationHeader = "Station MAC"

// Column of the associated access point id in the client section.
const stationBSSIDColumn = 5

// StationScanner reports clients associated to the target by running an
// operator-supplied capture command for the scan window and parsing the
// station-list CSV it writes.
//
// Argv accepts the {target}, {channel}, {iface} and {output} placeholders.
// With no Argv the scanner only parses Output, which some other process keeps
// up to date.
type StationScanner struct {
	Argv   []string
	Output string
}

// Scan implements learn.PresenceScanner.
func (s *StationScanner) Scan(ctx context.Context, target learn.Target, window time.Duration) (learn.ClientSet, error) {
	if s.Output == "" {
		return nil, errors.New("station scanner has no output path")
	}
	if len(s.Argv) > 0 {
		if err := s.capture(ctx, target, window); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(s.Output)
	if err != nil {
		return nil, fmt.Errorf("opening station list: %w", err)
	}
	defer f.Close()
	set, err := ParseStationCSV(f, target.ID)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("station scan on %s: %d associated clients", target.ID, set.Len())
	return set, nil
}

// capture runs the capture command until it exits or the window elapses.
// Being stopped by the window is the normal way for a capture to end.
func (s *StationScanner) capture(ctx context.Context, target learn.Target, window time.Duration) error {
	if err := os.Remove(s.Output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale station list: %w", err)
	}
	r := strings.NewReplacer(
		"{target}", target.ID,
		"{channel}", target.Channel,
		"{iface}", target.Interface,
		"{output}", s.Output,
	)
	argv := make([]string, len(s.Argv))
	for i, a := range s.Argv {
		argv[i] = r.Replace(a)
	}

	cctx := ctx
	if window > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, window)
		defer cancel()
	}
	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	cmd.WaitDelay = time.Second
	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && cctx.Err() == nil {
		return fmt.Errorf("capture command %s: %w", argv[0], err)
	}
	return nil
}

// ParseStationCSV returns the stations of the client section whose associated
// access point equals bssid (case-insensitive). Rows before the section header
// and rows without a valid station MAC are skipped; the first short row after
// the header ends the section. Station ids are returned lower-cased.
func ParseStationCSV(r io.Reader, bssid string) (learn.ClientSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	out := make(learn.ClientSet)
	inStations := false
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing station list: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		first := strings.TrimSpace(rec[0])
		if first == stationHeader {
			inStations = true
			continue
		}
		if !inStations {
			continue
		}
		if len(rec) <= stationBSSIDColumn {
			// end of the client section
			break
		}
		mac, err := net.ParseMAC(first)
		if err != nil || len(mac) != 6 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(rec[stationBSSIDColumn]), bssid) {
			continue
		}
		out[mac.String()] = struct{}{}
	}
	return out, nil
}
