package pipeline

import (
	"github.com/farcloser/turnmark/internal/audioio"
	"github.com/farcloser/turnmark/internal/cachestore"
	"github.com/farcloser/turnmark/internal/evidence"
	"github.com/farcloser/turnmark/internal/producers"
)

// cachedEnergy caches all three Energy tracks (rms, smooth, slope) under
// one cache key, since they come from a single ComputeAll pass.
func cachedEnergy(
	store *cachestore.Store,
	src audioio.Source,
	samples audioio.Samples,
	energy *producers.Energy,
) (rms, smooth, slope evidence.Track, err error) {
	key, err := cachestore.Key(
		src.Path, src.AbsPath, src.Size, src.ModTimeUnixNano,
		"energy", map[string]any{"smooth_radius_frames": energy.Opts.SmoothRadiusFrames},
	)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	var bundle energyDTO

	hit, err := store.Get(key, ".json", &bundle)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	if hit {
		return bundle.tracks()
	}

	rms, smooth, slope, err = energy.ComputeAll(samples)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	if err := store.Put(key, ".json", newEnergyDTO(rms, smooth, slope)); err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	return rms, smooth, slope, nil
}

type energyDTO struct {
	RMS    trackDTO
	Smooth trackDTO
	Slope  trackDTO
}

func newEnergyDTO(rms, smooth, slope evidence.Track) energyDTO {
	return energyDTO{RMS: toDTO(rms), Smooth: toDTO(smooth), Slope: toDTO(slope)}
}

func (d energyDTO) tracks() (rms, smooth, slope evidence.Track, err error) {
	rms, err = fromDTO(d.RMS)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	smooth, err = fromDTO(d.Smooth)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	slope, err = fromDTO(d.Slope)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, evidence.Track{}, err
	}

	return rms, smooth, slope, nil
}

// cachedDiarization caches diar_a/diar_b together, since both come from a
// single ComputeFromChannels pass.
func cachedDiarization(
	store *cachestore.Store,
	src audioio.Source,
	diarization *producers.Diarization,
	left, right []float64,
	sampleRate int,
	leakage []float64,
) (diarA, diarB evidence.Track, err error) {
	key, err := cachestore.Key(
		src.Path, src.AbsPath, src.Size, src.ModTimeUnixNano,
		"diarization", map[string]any{"dominance_db": diarization.Opts.DominanceDb},
	)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, err
	}

	var dto diarizationDTO

	hit, err := store.Get(key, ".json", &dto)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, err
	}

	if hit {
		diarA, err = fromDTO(dto.A)
		if err != nil {
			return evidence.Track{}, evidence.Track{}, err
		}

		diarB, err = fromDTO(dto.B)

		return diarA, diarB, err
	}

	diarA, diarB, err = diarization.ComputeFromChannels(left, right, sampleRate, leakage)
	if err != nil {
		return evidence.Track{}, evidence.Track{}, err
	}

	if err := store.Put(key, ".json", diarizationDTO{A: toDTO(diarA), B: toDTO(diarB)}); err != nil {
		return evidence.Track{}, evidence.Track{}, err
	}

	return diarA, diarB, nil
}

type diarizationDTO struct {
	A trackDTO
	B trackDTO
}
