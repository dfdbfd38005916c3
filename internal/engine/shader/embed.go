package shader

import _ "embed"

// VideoVertexShader transforms projection geometry.
//
//go:embed video.vert
var VideoVertexShader string

// VideoFragmentShader samples the video frame, applying the equi-angular
// cubemap warp when enabled.
//
//go:embed video.frag
var VideoFragmentShader string
