// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package resolve

import "fmt"

// Source names one place a field value can come from, in priority
// order.
type Source string

const (
	// SourceEmbedded reads the item's embedded attributes (EXIF and
	// similar), via the alias table.
	SourceEmbedded Source = "embedded"
	// SourceEmbeddedGPS reads embedded coordinates and routes them
	// through reverse geocoding.
	SourceEmbeddedGPS Source = "embedded_gps"
	// SourceInference reads the model's analysis output.
	SourceInference Source = "inference"
)

// PriorityTable maps a field title to its ordered value sources.
// Fields absent from the table fall back to embedded-then-inference by
// name match.
type PriorityTable map[string][]Source

// Validate rejects tables naming unknown sources. Titles that do not
// occur in a given schema are fine: one table serves many libraries.
func (t PriorityTable) Validate() error {
	for title, sources := range t {
		if title == "" {
			return fmt.Errorf("%w: empty field title", ErrInvalidPriorities)
		}
		if len(sources) == 0 {
			return fmt.Errorf("%w: field %q has no sources", ErrInvalidPriorities, title)
		}
		for _, s := range sources {
			switch s {
			case SourceEmbedded, SourceEmbeddedGPS, SourceInference:
			default:
				return fmt.Errorf("%w: field %q names unknown source %q", ErrInvalidPriorities, title, s)
			}
		}
	}
	return nil
}

// DefaultPriorities returns the built-in table. Dates and technical
// camera data trust the file over the model; locations trust
// coordinates; descriptive fields trust the model.
func DefaultPriorities() PriorityTable {
	return PriorityTable{
		// Capture time: the file knows, the model guesses.
		"DateTime":      {SourceEmbedded, SourceInference},
		"Datum":         {SourceEmbedded, SourceInference},
		"Aufnahmedatum": {SourceEmbedded, SourceInference},

		// Locations: coordinates beat the model's scene guess.
		"OrtohnePLZ": {SourceEmbeddedGPS, SourceInference},
		"Ort":        {SourceEmbeddedGPS, SourceInference},
		"Standort":   {SourceEmbeddedGPS, SourceInference},
		"Location":   {SourceEmbeddedGPS, SourceInference},

		// Descriptions: the model sees the image, the file rarely does.
		"Titel":             {SourceInference, SourceEmbedded},
		"Title":             {SourceInference, SourceEmbedded},
		"Beschreibung":      {SourceInference, SourceEmbedded},
		"Beschreibung_kurz": {SourceInference, SourceEmbedded},
		"Beschreibung_lang": {SourceInference, SourceEmbedded},
		"Description":       {SourceInference, SourceEmbedded},

		// Camera technicals.
		"Kamera":       {SourceEmbedded, SourceInference},
		"Camera":       {SourceEmbedded, SourceInference},
		"Objektiv":     {SourceEmbedded, SourceInference},
		"Lens":         {SourceEmbedded, SourceInference},
		"ISO":          {SourceEmbedded, SourceInference},
		"Aperture":     {SourceEmbedded, SourceInference},
		"ShutterSpeed": {SourceEmbedded, SourceInference},
		"FocalLength":  {SourceEmbedded, SourceInference},

		// Attribution.
		"Copyright":    {SourceEmbedded, SourceInference},
		"Autor":        {SourceEmbedded, SourceInference},
		"Fotograf":     {SourceEmbedded, SourceInference},
		"Photographer": {SourceEmbedded, SourceInference},

		// Material and construction judgments only the model can make.
		"Material":     {SourceInference},
		"Konstruktion": {SourceInference},
		"Holzart":      {SourceInference},
		"Bauweise":     {SourceInference},
		"Construction": {SourceInference},
		"WoodType":     {SourceInference},
		"BuildingType": {SourceInference},
	}
}

// DefaultAliases maps field titles to the embedded attribute names that
// back them, for the embedded source.
func DefaultAliases() map[string]string {
	return map[string]string{
		"DateTime":      "DateTimeOriginal",
		"Datum":         "DateTimeOriginal",
		"Aufnahmedatum": "DateTimeOriginal",

		"Autor":         "Artist",
		"Fotograf":      "Artist",
		"Photographer":  "Artist",
		"Copyright":     "Copyright",

		"Titel":             "ImageDescription",
		"Title":             "ImageDescription",
		"Beschreibung":      "ImageDescription",
		"Beschreibung_kurz": "ImageDescription",
		"Description":       "ImageDescription",

		"Kamera":       "Make",
		"Camera":       "Make",
		"Objektiv":     "LensModel",
		"Lens":         "LensModel",
		"ISO":          "ISOSpeedRatings",
		"Aperture":     "FNumber",
		"ShutterSpeed": "ExposureTime",
		"FocalLength":  "FocalLength",
	}
}
