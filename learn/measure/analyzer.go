package measure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/airlearn/airlearn/learn"
)

// HandshakeEAPOLThreshold is the EAPOL frame count above which a handshake
// is assumed even when the analyzer does not report one.
const HandshakeEAPOLThreshold = 3

// CommandAnalyzer runs an operator-supplied command that captures for the
// window and prints a JSON object with eapol_count and handshake_observed.
//
// Argv accepts the {window} placeholder, rendered in seconds.
type CommandAnalyzer struct {
	Argv []string
	// Grace is added to the window before the command is killed.
	Grace time.Duration
}

// Analyze implements learn.TrafficAnalyzer.
func (a *CommandAnalyzer) Analyze(ctx context.Context, window time.Duration) (learn.TrafficFeatures, error) {
	if len(a.Argv) == 0 {
		return learn.TrafficFeatures{}, fmt.Errorf("traffic analyzer has no command")
	}
	r := strings.NewReplacer("{window}", strconv.FormatFloat(window.Seconds(), 'f', -1, 64))
	argv := make([]string, len(a.Argv))
	for i, s := range a.Argv {
		argv[i] = r.Replace(s)
	}

	grace := a.Grace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, window+grace)
	defer cancel()
	out, err := commandOutput(cctx, argv)
	if err != nil {
		return learn.TrafficFeatures{}, fmt.Errorf("analyzer command %s: %w", argv[0], err)
	}
	return ParseFeatures(out)
}

// ParseFeatures decodes analyzer output. Unknown fields are ignored. The
// handshake flag is also set when the EAPOL count exceeds HandshakeEAPOLThreshold.
func ParseFeatures(data []byte) (learn.TrafficFeatures, error) {
	var f learn.TrafficFeatures
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return learn.TrafficFeatures{}, fmt.Errorf("decoding analyzer output: %w", err)
	}
	if f.EAPOLCount < 0 {
		return learn.TrafficFeatures{}, fmt.Errorf("analyzer reported negative eapol_count %d", f.EAPOLCount)
	}
	if f.EAPOLCount > HandshakeEAPOLThreshold {
		f.HandshakeObserved = true
	}
	return f, nil
}
