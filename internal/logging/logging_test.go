package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name      string
		logger    Logger
		wantInfo  bool
		wantDebug bool
	}{
		{"quiet", Logger{}, false, false},
		{"verbose", Logger{Verbose: true}, true, false},
		{"debug", Logger{Debug: true}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := tt.logger
			l.Out, l.Err = &out, &errOut

			l.Infof("syncing %s", "repo")
			l.Debugf("head %d", 7)
			l.Warnf("careful")
			l.Errorf("broken")

			if got := strings.Contains(out.String(), "[info] syncing repo"); got != tt.wantInfo {
				t.Errorf("info printed = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out.String(), "[debug] head 7"); got != tt.wantDebug {
				t.Errorf("debug printed = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(errOut.String(), "[warn] careful") || !strings.Contains(errOut.String(), "[error] broken") {
				t.Errorf("warnings and errors should always print, got %q", errOut.String())
			}
		})
	}
}
