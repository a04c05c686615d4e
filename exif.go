package main

import (
	"os"

	"exifManipulator/exifimage"
	"exifManipulator/geo"
)

// ExifData is the subset of EXIF that the geotagger writes and the date
// readers consume.
type ExifData struct {
	DateTimeDigitized   string  `json:"dateTimeDigitized,omitempty"`
	SubsecTimeDigitized string  `json:"subsecTimeDigitized,omitempty"`
	Orientation         int     `json:"orientation,omitempty"`
	Latitude            float64 `json:"latitude,omitempty"`
	Longitude           float64 `json:"longitude,omitempty"`
	LatitudeDMS         string  `json:"latitudeDms,omitempty"`
	LongitudeDMS        string  `json:"longitudeDms,omitempty"`
	HasLocation         bool    `json:"hasLocation"`
	Altitude            float64 `json:"altitude,omitempty"`
	HasAltitude         bool    `json:"hasAltitude"`
}

// ExtractExif reads the fields of ExifData straight from the file's EXIF
// stream. Missing tags are left zero.
func ExtractExif(path string) (*ExifData, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	r, err := exifimage.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out ExifData

	if s, ok := r.String(exifimage.DateTimeDigitized); ok {
		out.DateTimeDigitized = s
	}
	if s, ok := r.String(exifimage.SubsecTimeDigitized); ok {
		out.SubsecTimeDigitized = s
	}
	if o, ok := r.Int(exifimage.Orientation); ok {
		out.Orientation = o
	}

	// GPS
	if lat, lon, ok := r.LatLong(); ok {
		out.Latitude = lat
		out.Longitude = lon
		out.HasLocation = true

		latT := geo.DecimalToTriple(lat)
		lonT := geo.DecimalToTriple(lon)
		out.LatitudeDMS = latT.String() + " " + geo.LatitudeRef(latT)
		out.LongitudeDMS = lonT.String() + " " + geo.LongitudeRef(lonT)
	}
	if alt, ok := r.Altitude(); ok {
		out.Altitude = alt
		out.HasAltitude = true
	}

	return &out, nil
}
