// Package projection builds the mesh geometry and texture coordinates that
// wrap a flat 360°/180° video frame around the viewer.
//
// Project is a pure function: it never touches a scene. Callers own insertion
// and removal of the returned meshes.
package projection

import (
	"image/color"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format is a projection (wrap) format.
type Format int

const (
	FormatNone Format = iota
	FormatSphere360
	FormatSphere360LR
	FormatSphere360TB
	FormatCube360
	FormatSphere180Mono
	FormatSphere180Stereo
	FormatCubeEACMono
	FormatCubeEACStereo
	FormatFisheye
)

// Formats lists every supported format, NONE included.
var Formats = []Format{
	FormatNone,
	FormatSphere360,
	FormatSphere360LR,
	FormatSphere360TB,
	FormatCube360,
	FormatSphere180Mono,
	FormatSphere180Stereo,
	FormatCubeEACMono,
	FormatCubeEACStereo,
	FormatFisheye,
}

var formatNames = map[Format]string{
	FormatNone:            "NONE",
	FormatSphere360:       "360",
	FormatSphere360LR:     "360_LR",
	FormatSphere360TB:     "360_TB",
	FormatCube360:         "360_CUBE",
	FormatSphere180Mono:   "180_MONO",
	FormatSphere180Stereo: "180",
	FormatCubeEACMono:     "EAC",
	FormatCubeEACStereo:   "EAC_LR",
	FormatFisheye:         "FISHEYE",
}

// aliases maps every accepted public id to its format.
var aliases = map[string]Format{
	"NONE":            FormatNone,
	"360":             FormatSphere360,
	"SPHERE":          FormatSphere360,
	"EQUIRECTANGULAR": FormatSphere360,
	"360_LR":          FormatSphere360LR,
	"360_TB":          FormatSphere360TB,
	"CUBE":            FormatCube360,
	"360_CUBE":        FormatCube360,
	"180_MONO":        FormatSphere180Mono,
	"180":             FormatSphere180Stereo,
	"180_LR":          FormatSphere180Stereo,
	"EAC":             FormatCubeEACMono,
	"EAC_LR":          FormatCubeEACStereo,
	"FISHEYE":         FormatFisheye,
}

var upper = cases.Upper(language.Und)

// ParseFormat resolves a projection id such as "360_lr" or "equirectangular".
// Unknown ids return ok=false.
func ParseFormat(id string) (Format, bool) {
	f, ok := aliases[upper.String(strings.TrimSpace(id))]
	return f, ok
}

// String returns the canonical id.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// Stereo reports whether the format packs one image per eye.
func (f Format) Stereo() bool {
	switch f {
	case FormatSphere360LR, FormatSphere360TB, FormatSphere180Stereo, FormatCubeEACStereo:
		return true
	}
	return false
}

// HalfView reports whether the format only covers the front hemisphere.
func (f Format) HalfView() bool {
	return f == FormatSphere180Mono || f == FormatSphere180Stereo
}

// Background returns the clear color to draw behind the format's meshes.
// Fisheye footage leaves the rear hemisphere uncovered, so it gets a gray
// backdrop instead of black.
func Background(f Format) color.RGBA {
	if f == FormatFisheye {
		return color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
	}
	return color.RGBA{A: 0xff}
}
