package imggen

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"

	"relistapi/internal/model"
)

// Device identities for fabricated metadata. Consumer phones only; the
// listing photos must read as casual snapshots.
var devices = []struct {
	Make  string
	Model string
}{
	{"Apple", "iPhone 12"},
	{"Apple", "iPhone 12 Pro"},
	{"Apple", "iPhone 11"},
	{"Apple", "iPhone 13"},
	{"samsung", "SM-G991B"},
	{"Google", "Pixel 6"},
}

// UK cities used as GPS anchors. Coordinates are city centers; a jitter of up
// to ±0.1 degrees is applied so no two derivatives share an exact fix.
var regions = []struct {
	Name string
	Lat  float64
	Lon  float64
}{
	{"London", 51.5074, -0.1278},
	{"Manchester", 53.4808, -2.2426},
	{"Birmingham", 52.4862, -1.8904},
	{"Leeds", 53.8008, -1.5491},
	{"Glasgow", 55.8642, -4.2518},
	{"Liverpool", 53.4084, -2.9916},
	{"Bristol", 51.4545, -2.5879},
	{"Sheffield", 53.3811, -1.4701},
}

// fabricateMetadata invents a plausible capture: a consumer phone, a UK
// location near a city center, and a capture time within the last 30 days.
// Nothing here derives from the source image.
func fabricateMetadata(r *rand.Rand, now time.Time) model.FabricatedMetadata {
	dev := devices[r.Intn(len(devices))]
	reg := regions[r.Intn(len(regions))]

	jitter := func() float64 { return (r.Float64()*2 - 1) * 0.1 }
	age := time.Duration(r.Int63n(int64(30 * 24 * time.Hour)))

	return model.FabricatedMetadata{
		DeviceMake:  dev.Make,
		DeviceModel: dev.Model,
		Region:      reg.Name,
		Latitude:    reg.Lat + jitter(),
		Longitude:   reg.Lon + jitter(),
		CapturedAt:  now.Add(-age),
	}
}

const exifTimeLayout = "2006:01:02 15:04:05"

// injectExif writes the fabricated metadata into a freshly encoded JPEG.
// The input carries no EXIF (re-encoding stripped it), so a new builder is
// constructed from scratch.
func injectExif(jpegBytes []byte, meta model.FabricatedMetadata) ([]byte, error) {
	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseBytes(jpegBytes)
	if err != nil {
		return nil, fmt.Errorf("parse jpeg segments: %w", err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		im, err := exifcommon.NewIfdMappingWithStandard()
		if err != nil {
			return nil, fmt.Errorf("ifd mapping: %w", err)
		}
		rootIb = exif.NewIfdBuilder(im, exif.NewTagIndex(), exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	}

	ts := meta.CapturedAt.Format(exifTimeLayout)

	ifd0, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD0")
	if err != nil {
		return nil, fmt.Errorf("ifd0 builder: %w", err)
	}
	if err := ifd0.SetStandardWithName("Make", meta.DeviceMake); err != nil {
		return nil, fmt.Errorf("set make: %w", err)
	}
	if err := ifd0.SetStandardWithName("Model", meta.DeviceModel); err != nil {
		return nil, fmt.Errorf("set model: %w", err)
	}
	if err := ifd0.SetStandardWithName("DateTime", ts); err != nil {
		return nil, fmt.Errorf("set datetime: %w", err)
	}

	exifIfd, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return nil, fmt.Errorf("exif ifd builder: %w", err)
	}
	if err := exifIfd.SetStandardWithName("DateTimeOriginal", ts); err != nil {
		return nil, fmt.Errorf("set datetime original: %w", err)
	}
	if err := exifIfd.SetStandardWithName("DateTimeDigitized", ts); err != nil {
		return nil, fmt.Errorf("set datetime digitized: %w", err)
	}

	gpsIfd, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return nil, fmt.Errorf("gps ifd builder: %w", err)
	}

	latRef, lat := gpsCoordinate(meta.Latitude, "N", "S")
	lonRef, lon := gpsCoordinate(meta.Longitude, "E", "W")

	if err := gpsIfd.SetStandardWithName("GPSLatitudeRef", latRef); err != nil {
		return nil, fmt.Errorf("set gps latitude ref: %w", err)
	}
	if err := gpsIfd.SetStandardWithName("GPSLatitude", lat); err != nil {
		return nil, fmt.Errorf("set gps latitude: %w", err)
	}
	if err := gpsIfd.SetStandardWithName("GPSLongitudeRef", lonRef); err != nil {
		return nil, fmt.Errorf("set gps longitude ref: %w", err)
	}
	if err := gpsIfd.SetStandardWithName("GPSLongitude", lon); err != nil {
		return nil, fmt.Errorf("set gps longitude: %w", err)
	}

	if err := sl.SetExif(rootIb); err != nil {
		return nil, fmt.Errorf("attach exif segment: %w", err)
	}

	out := new(bytes.Buffer)
	if err := sl.Write(out); err != nil {
		return nil, fmt.Errorf("write jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// gpsCoordinate converts a signed decimal degree into an EXIF reference
// letter plus degree/minute/second rationals.
func gpsCoordinate(deg float64, pos, neg string) (string, []exifcommon.Rational) {
	ref := pos
	if deg < 0 {
		ref = neg
		deg = -deg
	}

	d := math.Floor(deg)
	m := math.Floor((deg - d) * 60)
	s := (deg - d - m/60) * 3600

	return ref, []exifcommon.Rational{
		{Numerator: uint32(d), Denominator: 1},
		{Numerator: uint32(m), Denominator: 1},
		{Numerator: uint32(s * 100), Denominator: 100},
	}
}
