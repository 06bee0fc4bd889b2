package models_test

import (
	"testing"

	"geofuse/feature/geolocate/models"

	"github.com/stretchr/testify/assert"
)

func TestParseISO6709(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		lat     float64
		lon     float64
		ok      bool
	}{
		{"Apple Quicktime Atom", "+37.3349-122.0090+011.579/", 37.3349, -122.0090, true},
		{"Positive Lon", "+48.8584+002.2945/", 48.8584, 2.2945, true},
		{"Embedded In Text", "location: -33.8688+151.2093 recorded", -33.8688, 151.2093, true},
		{"No Match", "no coordinates here", 0, 0, false},
		{"Out Of Range", "+99.0000+200.0000/", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, ok := models.ParseISO6709(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.lat, lat, 1e-9)
				assert.InDelta(t, tt.lon, lon, 1e-9)
			}
		})
	}
}

func TestExtractXMPGPS(t *testing.T) {
	t.Run("ISO6709 Wins", func(t *testing.T) {
		xmp := `<x:xmpmeta>+51.5007-000.1246/<exif:GPSLatitude>10,0.0N</exif:GPSLatitude></x:xmpmeta>`
		lat, lon, ok := models.ExtractXMPGPS(xmp)
		assert.True(t, ok)
		assert.InDelta(t, 51.5007, lat, 1e-9)
		assert.InDelta(t, -0.1246, lon, 1e-9)
	})

	t.Run("Tag Pair Decimal Minutes", func(t *testing.T) {
		xmp := `<exif:GPSLatitude>48,51.4908N</exif:GPSLatitude><exif:GPSLongitude>2,17.6700E</exif:GPSLongitude>`
		lat, lon, ok := models.ExtractXMPGPS(xmp)
		assert.True(t, ok)
		assert.InDelta(t, 48.85818, lat, 1e-4)
		assert.InDelta(t, 2.2945, lon, 1e-4)
	})

	t.Run("Tag Pair Southern Hemisphere", func(t *testing.T) {
		xmp := `<exif:GPSLatitude>33,52.128S</exif:GPSLatitude><exif:GPSLongitude>151,12.558E</exif:GPSLongitude>`
		lat, lon, ok := models.ExtractXMPGPS(xmp)
		assert.True(t, ok)
		assert.InDelta(t, -33.8688, lat, 1e-3)
		assert.InDelta(t, 151.2093, lon, 1e-3)
	})

	t.Run("Latitude Only Is Not Enough", func(t *testing.T) {
		xmp := `<exif:GPSLatitude>48,51.4908N</exif:GPSLatitude>`
		_, _, ok := models.ExtractXMPGPS(xmp)
		assert.False(t, ok)
	})
}

func TestExtractNetworkHints(t *testing.T) {
	xmp := `<rdf:Description>
	  WiFiBSSID: AA:BB:CC:DD:EE:FF
	  backup AP aa:bb:cc:dd:ee:ff and 11:22:33:44:55:66
	  uploader 198.51.100.23 via proxy 10.0.0.1
	</rdf:Description>`

	bssids, ip := models.ExtractNetworkHints(xmp)
	assert.Equal(t, []string{"aa:bb:cc:dd:ee:ff", "11:22:33:44:55:66"}, bssids)
	assert.Equal(t, "198.51.100.23", ip, "private addresses must be skipped")
}

func TestApplyXMPHints(t *testing.T) {
	t.Run("Fills Empty Fields", func(t *testing.T) {
		rec := &models.Record{XMPText: "ap 11:22:33:44:55:66 ip 198.51.100.23"}
		models.ApplyXMPHints(rec)
		assert.Equal(t, "198.51.100.23", rec.IP)
		assert.Len(t, rec.Wifi, 1)
		assert.Equal(t, "11:22:33:44:55:66", rec.Wifi[0].BSSID)
	})

	t.Run("Explicit Fields Win", func(t *testing.T) {
		rec := &models.Record{
			IP:      "203.0.113.7",
			Wifi:    []models.WifiAP{{BSSID: "aa:aa:aa:aa:aa:aa"}},
			XMPText: "ap 11:22:33:44:55:66 ip 198.51.100.23",
		}
		models.ApplyXMPHints(rec)
		assert.Equal(t, "203.0.113.7", rec.IP)
		assert.Len(t, rec.Wifi, 1)
		assert.Equal(t, "aa:aa:aa:aa:aa:aa", rec.Wifi[0].BSSID)
	})

	t.Run("No Sidecar Is A Noop", func(t *testing.T) {
		rec := &models.Record{}
		models.ApplyXMPHints(rec)
		assert.True(t, rec.Empty())
	})
}
