package media

import (
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"medialift/internal/logging"
	"medialift/internal/models"
)

// exifExtensions are the still-image types probed for embedded capture tags
var exifExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "tiff": {}, "tif": {}, "png": {},
}

// dimensionExtensions are the raster types probed for pixel dimensions
var dimensionExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "tiff": {}, "tif": {}, "png": {}, "webp": {}, "bmp": {},
}

// Extractor derives descriptive attributes from media files
type Extractor struct {
	logger *logging.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(logger *logging.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract always returns a metadata value and never fails the caller. Each
// stage runs independently and best-effort: filesystem attributes, embedded
// capture tags, pixel dimensions. The first stage failure is recorded in the
// value's Error field; one bad file must not abort a batch scan.
func (e *Extractor) Extract(path string) *models.Metadata {
	meta := &models.Metadata{}

	info, err := os.Stat(path)
	if err != nil {
		e.debug(path, "Failed to read file attributes", err)
		e.note(meta, err)
		return meta
	}

	size := info.Size()
	modified := float64(info.ModTime().UnixNano()) / 1e9
	created := createdTime(info)
	meta.FileSize = &size
	meta.ModifiedTime = &modified
	meta.CreatedTime = &created

	ext := NormalizedExtension(path)

	if _, ok := exifExtensions[ext]; ok {
		e.extractEXIF(path, meta)
	}

	if _, ok := dimensionExtensions[ext]; ok {
		e.extractDimensions(path, meta)
	}

	return meta
}

// extractEXIF fills the embedded capture tag fields; each tag is absent when
// not embedded or unreadable. A file with no embedded tags at all is normal
// and leaves no trace, only an I/O failure counts as an extraction error.
func (e *Extractor) extractEXIF(path string, meta *models.Metadata) {
	file, err := os.Open(path)
	if err != nil {
		e.debug(path, "Failed to open file for EXIF extraction", err)
		e.note(meta, err)
		return
	}
	defer file.Close()

	tags, err := exif.Decode(file)
	if err != nil {
		e.debug(path, "No EXIF metadata extracted", err)
		return
	}

	meta.CameraMake = tagString(tags, exif.Make)
	meta.CameraModel = tagString(tags, exif.Model)
	meta.LensModel = tagString(tags, exif.LensModel)
	meta.DateTaken = tagString(tags, exif.DateTimeOriginal)
	meta.ExposureTime = tagString(tags, exif.ExposureTime)
	meta.FNumber = tagString(tags, exif.FNumber)
	meta.ISO = tagString(tags, exif.ISOSpeedRatings)
	meta.FocalLength = tagString(tags, exif.FocalLength)
	meta.Flash = tagString(tags, exif.Flash)
	meta.GPSLatitude = tagString(tags, exif.GPSLatitude)
	meta.GPSLongitude = tagString(tags, exif.GPSLongitude)
}

// tagString renders a single EXIF tag as a trimmed string, nil when the tag
// is absent or empty
func tagString(tags *exif.Exif, name exif.FieldName) *string {
	tag, err := tags.Get(name)
	if err != nil {
		return nil
	}

	value, err := tag.StringVal()
	if err != nil {
		// Non-ASCII tags (rationals, shorts) keep their raw rendering
		value = tag.String()
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// extractDimensions fills pixel dimensions and color mode for decodable
// raster formats. An undecodable file claiming a raster extension is worth a
// diagnostic, so decode failures land in the error note too.
func (e *Extractor) extractDimensions(path string, meta *models.Metadata) {
	file, err := os.Open(path)
	if err != nil {
		e.debug(path, "Failed to open file for dimension probe", err)
		e.note(meta, err)
		return
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		e.debug(path, "No image dimensions extracted", err)
		e.note(meta, err)
		return
	}

	width := config.Width
	height := config.Height
	meta.ImageWidth = &width
	meta.ImageHeight = &height

	if mode := colorModeName(config.ColorModel); mode != "" {
		meta.ImageMode = &mode
	}
}

// colorModeName maps a decoded color model onto the conventional mode names
func colorModeName(model color.Model) string {
	switch model {
	case color.YCbCrModel:
		return "YCbCr"
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return "RGBA"
	case color.CMYKModel:
		return "CMYK"
	}
	if _, ok := model.(color.Palette); ok {
		return "P"
	}
	return ""
}

// note records the first stage failure as the diagnostic string
func (e *Extractor) note(meta *models.Metadata, err error) {
	if meta.Error != nil {
		return
	}
	msg := err.Error()
	meta.Error = &msg
}

func (e *Extractor) debug(path, msg string, err error) {
	if e.logger == nil {
		return
	}
	e.logger.Debug().Str("file_path", path).Err(err).Msg(msg)
}
