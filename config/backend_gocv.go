//go:build gocv
// +build gocv

package config

// defaultBackend в сборке с OpenCV.
const defaultBackend = BackendOpenCV
