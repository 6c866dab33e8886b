package video

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/abema/go-mp4"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
)

// ─── MP4 / MOV without ffprobe ───────────────────────────────────────────────

// mp4EpochOffset is the number of seconds between 1904-01-01, the epoch of
// mvhd timestamps, and the Unix epoch.
const mp4EpochOffset uint64 = 2082844800

var boxTypeXYZ = mp4.BoxType{0xA9, 'x', 'y', 'z'}

// iso6709Re pulls the lat/lon pair out of a ©xyz payload, which is
// prefixed by a length and language code.
var iso6709Re = regexp.MustCompile(`[+-]\d+(\.\d+)?[+-]\d+(\.\d+)?([+-]\d+(\.\d+)?)?/?`)

// readBoxes reads the movie header creation time and the ©xyz location
// directly from the box structure of an MP4/MOV file.
func readBoxes(path string, log *zap.Logger) core.Extraction {
	var out core.Extraction
	out.TimeErr = fmt.Errorf("mvhd creation time: %w", core.ErrNoData)
	out.CoordErr = fmt.Errorf("©xyz: %w", core.ErrNoData)

	f, err := os.Open(path)
	if err != nil {
		out.TimeErr, out.CoordErr = err, err
		return out
	}
	defer f.Close()

	_, err = mp4.ReadBoxStructure(f, func(h *mp4.ReadHandle) (interface{}, error) {
		if h.BoxInfo.Context.UnderUdta && h.BoxInfo.Type == boxTypeXYZ {
			var buf bytes.Buffer
			if _, err := h.ReadData(&buf); err != nil {
				return nil, fmt.Errorf("reading ©xyz box data: %w", err)
			}
			loc := iso6709Re.FindString(buf.String())
			if loc == "" {
				out.CoordErr = &core.ParseError{Field: "©xyz", Value: buf.String()}
				return nil, nil
			}
			out.Coord, out.CoordErr = ParseLocation(loc)
			return nil, nil
		}
		if !h.BoxInfo.IsSupportedType() || h.BoxInfo.Type == mp4.BoxTypeMdat() {
			return nil, nil
		}

		switch h.BoxInfo.Type {
		case mp4.BoxTypeMvhd():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, fmt.Errorf("reading mvhd: %w", err)
			}
			if mvhd, ok := box.(*mp4.Mvhd); ok {
				if ts := mvhd.GetCreationTime(); ts > mp4EpochOffset {
					out.Time = time.Unix(int64(ts-mp4EpochOffset), 0).UTC()
					out.TimeErr = nil
				}
			}
			return nil, nil
		case mp4.BoxTypeMoov(), mp4.BoxTypeUdta():
			return h.Expand()
		}
		return nil, nil
	})
	if err != nil {
		log.Debug("walking mp4 boxes", zap.String("path", path), zap.Error(err))
		if out.TimeErr != nil && core.Classify(out.TimeErr) == core.FailAbsent {
			out.TimeErr = &core.ParseError{Field: "mp4", Err: err}
		}
	}
	return out
}
