package internal

import (
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// TimeTrack logs the elapsed time of each call and the running average.
func TimeTrack(logger zerolog.Logger, name string) func(time.Time) {
	var avg int64
	var n int64
	return func(start time.Time) {
		elapsed := time.Since(start)
		n++
		avg = (avg*(n-1) + int64(elapsed)) / n
		logger.Info().
			Str("name", name).
			Int64("n", n).
			Dur("elapsed", elapsed).
			Dur("average", time.Duration(avg)).
			Msg("time track")
	}
}

// ContentType sniffs the media type from the head of r.
func ContentType(r io.Reader) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}
