package media

import (
	"errors"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// EXIFInfo is the metadata of interest in a stored image.
// Notes shared on the platform are personal photos, so GPS tags in them
// are worth flagging before the dataset leaves the machine.
type EXIFInfo struct {
	HasGPS   bool
	Make     string
	Model    string
	Software string
	Taken    string
}

// Camera returns "make model" with blanks removed.
func (i EXIFInfo) Camera() string {
	return strings.TrimSpace(strings.TrimSpace(i.Make) + " " + strings.TrimSpace(i.Model))
}

// Empty reports whether no tag of interest was found.
func (i EXIFInfo) Empty() bool {
	return !i.HasGPS && i.Camera() == "" && i.Software == "" && i.Taken == ""
}

// InspectEXIF extracts EXIF metadata from image bytes.
// Images without EXIF return a zero EXIFInfo and a nil error.
func InspectEXIF(data []byte) (EXIFInfo, error) {
	var info EXIFInfo

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return info, nil
		}
		return info, err
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return info, err
	}

	for _, entry := range entries {
		switch entry.TagName {
		case "GPSLatitude", "GPSLongitude":
			info.HasGPS = true
		case "Make":
			info.Make = entry.Formatted
		case "Model":
			info.Model = entry.Formatted
		case "Software", "ProcessingSoftware":
			info.Software = entry.Formatted
		case "DateTimeOriginal":
			info.Taken = entry.Formatted
		}
	}
	return info, nil
}
