package api

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"time"
)

type MediaResponseType string

const (
	JPEG MediaResponseType = "jpeg"
	PNG  MediaResponseType = "png"
)

const snapshotTimeout = 5 * time.Second

// @Summary	fetch the current contents of a window backing
// @Router		/api/snapshot/{wid} [get]
// @Router		/api/snapshot/{wid}/{format} [get]
// @Tags		backing
// @Param		wid		path	string				true	"Window id, decimal or 0x prefixed"
// @Param		format	path	MediaResponseType	false	"The image type to return"
// @Success	200
// @Failure	400	{string}	string	"The window id is not a number"
// @Failure	400	{string}	string	"The requested image format is not supported"
// @Failure	404	{string}	string	"There is no backing for this window or nothing was painted yet"
// @Produce	png
// @Produce	jpeg
func (a *Api) handleSnapshot(w http.ResponseWriter, req *http.Request) {
	wid, err := parseWID(req.PathValue("wid"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid window id: %s", err), http.StatusBadRequest)
		return
	}
	format := MediaResponseType(req.PathValue("format"))
	if format == "" {
		format = PNG
	}
	if format != PNG && format != JPEG {
		http.Error(w, "The requested image format is not supported", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), snapshotTimeout)
	defer cancel()
	img, err := a.backings.Snapshot(ctx, wid)
	if err != nil {
		http.Error(w, fmt.Sprintf("could not take snapshot: %s", err), http.StatusNotFound)
		return
	}

	switch format {
	case JPEG:
		w.Header().Set("Content-Type", "image/jpeg")
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		w.Header().Set("Content-Type", "image/png")
		err = png.Encode(w, img)
	}
	if err != nil {
		a.log.Error("could not encode snapshot", slog.Uint64("wid", wid), slog.Any("error", err))
	}
}
