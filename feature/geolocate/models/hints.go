package models

import (
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Sidecar XMP dumps from the collection pipeline regularly carry more
// than EXIF does: an ISO 6709 location atom, exif:GPS* tags, and
// sometimes network traces (access point MACs, the uploader's public
// IP) left behind by camera apps. The extraction here is pure text
// processing; no XML parser is warranted for these well-known shapes.

var (
	iso6709Re = regexp.MustCompile(`([+-]\d+\.\d+)([+-]\d+\.\d+)`)
	xmpLatRe  = regexp.MustCompile(`<exif:GPSLatitude>([^<]+)</exif:GPSLatitude>`)
	xmpLonRe  = regexp.MustCompile(`<exif:GPSLongitude>([^<]+)</exif:GPSLongitude>`)
	bssidRe   = regexp.MustCompile(`(?i)\b([0-9a-f]{2}(?::[0-9a-f]{2}){5})\b`)
	ipv4Re    = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{1,3}){3})\b`)
)

// ParseISO6709 extracts the leading lat/lon pair from an ISO 6709
// location string such as "+37.3349-122.0090+011.579/".
func ParseISO6709(s string) (lat, lon float64, ok bool) {
	m := iso6709Re.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// ExtractXMPGPS pulls GPS coordinates out of sidecar XMP text. An
// ISO 6709 atom wins over exif:GPSLatitude/exif:GPSLongitude tag pairs
// since it is the form written by the capture device itself.
func ExtractXMPGPS(xmp string) (lat, lon float64, ok bool) {
	if lat, lon, ok = ParseISO6709(xmp); ok {
		return lat, lon, true
	}

	latM := xmpLatRe.FindStringSubmatch(xmp)
	lonM := xmpLonRe.FindStringSubmatch(xmp)
	if latM == nil || lonM == nil {
		return 0, 0, false
	}

	lat, ok1 := parseXMPCoord(latM[1])
	lon, ok2 := parseXMPCoord(lonM[1])
	if !ok1 || !ok2 || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// parseXMPCoord parses the XMP GPSCoordinate format "48,51.4908N"
// (degrees, decimal minutes, hemisphere) as well as plain decimal
// degrees with an optional hemisphere suffix.
func parseXMPCoord(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}

	sign := 1.0
	switch v[len(v)-1] {
	case 'N', 'E':
		v = v[:len(v)-1]
	case 'S', 'W':
		sign = -1
		v = v[:len(v)-1]
	}

	if i := strings.IndexByte(v, ','); i >= 0 {
		deg, err1 := strconv.ParseFloat(v[:i], 64)
		min, err2 := strconv.ParseFloat(v[i+1:], 64)
		if err1 != nil || err2 != nil || min < 0 {
			return 0, false
		}
		return sign * (deg + min/60), true
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return sign * f, true
}

// ExtractNetworkHints scans sidecar text for access point MACs and a
// public IPv4 address. BSSIDs are normalized to lower case and
// deduplicated; private/loopback IPs are skipped since geolocating
// them is meaningless.
func ExtractNetworkHints(xmp string) (bssids []string, ip string) {
	seen := make(map[string]struct{})
	for _, m := range bssidRe.FindAllStringSubmatch(xmp, -1) {
		b := strings.ToLower(m[1])
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		bssids = append(bssids, b)
	}

	for _, m := range ipv4Re.FindAllStringSubmatch(xmp, -1) {
		parsed := net.ParseIP(m[1])
		if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified() {
			continue
		}
		ip = m[1]
		break
	}

	return bssids, ip
}

// ApplyXMPHints fills Wifi and IP from the record's sidecar text when
// those fields are empty, so the wifi_cell and ip resolvers can work
// with what the camera app left behind. Explicit record fields always
// win over hints.
func ApplyXMPHints(rec *Record) {
	if rec == nil || rec.XMPText == "" {
		return
	}
	bssids, ip := ExtractNetworkHints(rec.XMPText)
	if len(rec.Wifi) == 0 {
		for _, b := range bssids {
			rec.Wifi = append(rec.Wifi, WifiAP{BSSID: b})
		}
	}
	if rec.IP == "" && ip != "" {
		rec.IP = ip
	}
}
