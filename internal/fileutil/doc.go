// Package fileutil writes retrieved results into the output directory.
package fileutil
