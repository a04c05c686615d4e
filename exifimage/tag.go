package exifimage

import (
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	goexif "github.com/rwcarlsen/goexif/exif"
)

// Tag identifies one of the EXIF tags this module reads or writes.
type Tag int

const (
	GPSLatitude Tag = iota
	GPSLatitudeRef
	GPSLongitude
	GPSLongitudeRef
	GPSAltitude
	GPSAltitudeRef
	Orientation
	DateTimeDigitized
	SubsecTimeDigitized
	ProcessingSoftware
)

type tagInfo struct {
	// name is the standard tag name known to go-exif.
	name string
	// ifdPath is the fully qualified IFD path the tag is written under.
	ifdPath string
	ifd     *exifcommon.IfdIdentity
	// field is the goexif name used by the fast reader; empty when goexif has none.
	field goexif.FieldName
}

const (
	rootIfdPath = "IFD"
	exifIfdPath = "IFD/Exif"
	gpsIfdPath  = "IFD/GPSInfo"
)

var tagInfos = map[Tag]tagInfo{
	GPSLatitude:         {name: "GPSLatitude", ifdPath: gpsIfdPath, ifd: exifcommon.IfdGpsInfoStandardIfdIdentity, field: goexif.GPSLatitude},
	GPSLatitudeRef:      {name: "GPSLatitudeRef", ifdPath: gpsIfdPath, ifd: exifcommon.IfdGpsInfoStandardIfdIdentity, field: goexif.GPSLatitudeRef},
	GPSLongitude:        {name: "GPSLongitude", ifdPath: gpsIfdPath, ifd: exifcommon.IfdGpsInfoStandardIfdIdentity, field: goexif.GPSLongitude},
	GPSLongitudeRef:     {name: "GPSLongitudeRef", ifdPath: gpsIfdPath, ifd: exifcommon.IfdGpsInfoStandardIfdIdentity, field: goexif.GPSLongitudeRef},
	GPSAltitude:         {name: "GPSAltitude", ifdPath: gpsIfdPath, ifd: exifcommon.IfdGpsInfoStandardIfdIdentity, field: goexif.GPSAltitude},
	GPSAltitudeRef:      {name: "GPSAltitudeRef", ifdPath: gpsIfdPath, ifd: exifcommon.IfdGpsInfoStandardIfdIdentity, field: goexif.GPSAltitudeRef},
	Orientation:         {name: "Orientation", ifdPath: rootIfdPath, ifd: exifcommon.IfdStandardIfdIdentity, field: goexif.Orientation},
	DateTimeDigitized:   {name: "DateTimeDigitized", ifdPath: exifIfdPath, ifd: exifcommon.IfdExifStandardIfdIdentity, field: goexif.DateTimeDigitized},
	SubsecTimeDigitized: {name: "SubSecTimeDigitized", ifdPath: exifIfdPath, ifd: exifcommon.IfdExifStandardIfdIdentity, field: goexif.SubSecTimeDigitized},
	ProcessingSoftware:  {name: "ProcessingSoftware", ifdPath: rootIfdPath, ifd: exifcommon.IfdStandardIfdIdentity},
}

func (t Tag) info() (tagInfo, bool) {
	ti, ok := tagInfos[t]
	return ti, ok
}

func (t Tag) String() string {
	if ti, ok := tagInfos[t]; ok {
		return ti.name
	}
	return "Unknown"
}
