// Package suntime computes sunrise, sunset and twilight times for a
// given day and location, good to a few minutes, which is plenty for
// daylight-driven automation.
package suntime

import (
	"math"
	"time"
)

const (
	degs    = 180.0 / math.Pi
	rads    = math.Pi / 180.0
	sunDia  = 0.53        // apparent diameter of the sun in degrees
	airRefr = 34.0 / 60.0 // atmospheric refraction in degrees
)

// Params holds the sun parameters of one day at one place, all times in
// local decimal hours.
type Params struct {
	Sunrise     float64 // sunrise time
	Sunset      float64 // sunset time
	Twilight    float64 // duration of civil twilight before sunrise / after sunset
	Noon        float64 // solar noon
	MaxAltitude float64 // maximum sun altitude in degrees
}

// daysToJ2000 works between 1901 and 2099.
func daysToJ2000(y, m, d int, h float64) float64 {
	n := -7*(y+(m+9)/12)/4 + 275*m/9 + d
	n += y * 367
	return float64(n) - 730531.5 + h/24.0
}

// rangeAngle folds an angle into 0..2*pi.
func rangeAngle(x float64) float64 {
	b := 0.5 * x / math.Pi
	a := 2.0 * math.Pi * (b - math.Trunc(b))
	if a < 0 {
		a = 2.0*math.Pi + a
	}
	return a
}

// hourAngle computes the half day length angle for the given latitude
// and solar declination, correcting for sun diameter and refraction.
func hourAngle(lat, declin float64) float64 {
	dfo := rads * (0.5*sunDia + airRefr)
	if lat < 0 {
		dfo = -dfo
	}
	fo := math.Tan(declin+dfo) * math.Tan(lat*rads)
	if fo > 0.99999 {
		fo = 1.0
	}
	return math.Asin(fo) + math.Pi/2.0
}

// twilightAngle is like hourAngle but for the sun 6 degrees below the
// horizon (civil twilight).
func twilightAngle(lat, declin float64) float64 {
	df1 := rads * 6.0
	if lat < 0 {
		df1 = -df1
	}
	fi := math.Tan(declin+df1) * math.Tan(lat*rads)
	if fi > 0.99999 {
		fi = 1.0
	}
	return math.Asin(fi) + math.Pi/2.0
}

// SunParams computes the sun parameters for the day containing t in t's
// time zone.
func SunParams(t time.Time, latitude, longitude float64) Params {
	var p Params
	_, tzoff := t.Zone()
	tz := float64(tzoff) / 3600.0 // hours east of GMT
	y, mo, day := t.Date()
	d := daysToJ2000(y, int(mo), day, 12)
	// mean longitude and mean anomaly of the sun
	L := rangeAngle(280.461*rads + 0.9856474*rads*d)
	g := rangeAngle(357.528*rads + 0.9856003*rads*d)
	// ecliptic longitude
	lambda := rangeAngle(L + 1.915*rads*math.Sin(g) + 0.02*rads*math.Sin(2*g))
	// obliquity of the ecliptic
	obliq := 23.439*rads - 0.0000004*rads*d
	// right ascension and declination
	alpha := math.Atan2(math.Cos(obliq)*math.Sin(lambda), math.Cos(lambda))
	delta := math.Asin(math.Sin(obliq) * math.Sin(lambda))
	// equation of time in minutes
	LL := L - alpha
	if L < math.Pi {
		LL += 2.0 * math.Pi
	}
	equation := 1440.0 * (1.0 - LL/math.Pi/2.0)
	ha := hourAngle(latitude, delta)
	hb := twilightAngle(latitude, delta)
	p.Twilight = 12.0 * (hb - ha) / math.Pi
	p.Sunrise = 12.0 - 12.0*ha/math.Pi + tz - longitude/15.0 + equation/60.0
	p.Sunset = 12.0 + 12.0*ha/math.Pi + tz - longitude/15.0 + equation/60.0
	p.Noon = p.Sunrise + 12.0*ha/math.Pi
	p.MaxAltitude = 90.0 + delta*degs - latitude
	if latitude < delta*degs {
		p.MaxAltitude = 180.0 - p.MaxAltitude
	}
	if p.Sunrise > 24.0 {
		p.Sunrise -= 24.0
	}
	if p.Sunset > 24.0 {
		p.Sunset -= 24.0
	}
	return p
}

// Sunrise returns the sunrise time (or the start of morning twilight)
// in local decimal hours.
func Sunrise(t time.Time, latitude, longitude float64, twilight bool) float64 {
	p := SunParams(t, latitude, longitude)
	if twilight {
		return p.Sunrise - p.Twilight
	}
	return p.Sunrise
}

// Sunset returns the sunset time (or the end of evening twilight) in
// local decimal hours.
func Sunset(t time.Time, latitude, longitude float64, twilight bool) float64 {
	p := SunParams(t, latitude, longitude)
	if twilight {
		return p.Sunset + p.Twilight
	}
	return p.Sunset
}
