package httpapi

import (
	"context"

	"github.com/arall/sigint/internal/model"
)

func withStation(ctx context.Context, station *model.Station) context.Context {
	return context.WithValue(ctx, stationKey, station)
}

func stationFrom(ctx context.Context) *model.Station {
	station, _ := ctx.Value(stationKey).(*model.Station)
	return station
}
