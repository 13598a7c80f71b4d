package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
)

const geoJSONContentType = "application/geo+json"

func writeGeoJSON(c *gin.Context, fc *geojson.FeatureCollection) {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	c.Header("Content-Type", geoJSONContentType)
	c.JSON(http.StatusOK, fc)
}
