package capture

import (
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket/pcapgo"
)

// CheckFile verifies that the file at path is a well-formed capture
// container. tshark writes pcapng by default, so that is tried first, with
// classic pcap as a fallback. Only the container header is validated; packet
// contents are never decoded here.
func CheckFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("capture output missing: %w", err)
	}
	defer f.Close()

	if _, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions); err == nil {
		return nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := pcapgo.NewReader(f); err == nil {
		return nil
	}
	return fmt.Errorf("%s is not a recognizable pcapng/pcap file", path)
}
