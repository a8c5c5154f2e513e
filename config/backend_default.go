//go:build !gocv
// +build !gocv

package config

// defaultBackend без тега gocv OpenCV-детектор недоступен.
const defaultBackend = BackendONNX
