package eta

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/delivery-driver/internal/models"
)

// OSRMClient estimates trips against an OSRM routing server. Optional:
// the agent falls back to the naive estimator when unset.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

// EstimateTrip queries the OSRM /route endpoint between the pickup and
// dropoff and returns the driving duration and routed distance.
func (o *OSRMClient) EstimateTrip(from, to models.Coord) (Estimate, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false",
		o.Endpoint, from.Lon, from.Lat, to.Lon, to.Lat)
	resp, err := o.Client.Get(url)
	if err != nil {
		return Estimate{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Estimate{}, fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	var out struct {
		Code   string `json:"code"`
		Routes []struct {
			Duration float64 `json:"duration"`
			Distance float64 `json:"distance"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Estimate{}, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return Estimate{}, fmt.Errorf("osrm no route: %s", out.Code)
	}
	r := out.Routes[0]
	return Estimate{Seconds: r.Duration, DistanceM: r.Distance}, nil
}
