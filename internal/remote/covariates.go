package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/jvasco323/TRM/internal/properties"
)

var retryDelay = 5 * time.Second

const maxEdgePixels = 2500

// gridPixels sizes one raster edge from a geographic distance and a
// target resolution in meters.
func gridPixels(distance float64, resolution float64) int {
	pixels := distance * (111_000.0 / resolution)
	if pixels < 1 {
		return 1
	}
	if pixels > maxEdgePixels {
		return maxEdgePixels
	}
	return int(pixels)
}

// DownloadCovariate requests one covariate layer over a bounding box
// from the process API and writes the returned GeoTIFF to dest. Client
// credentials come from the environment and may be comma separated
// lists, tried in order until one pair succeeds.
func DownloadCovariate(ctx context.Context, layer string, minLon, minLat, maxLon, maxLat, resolution float64, dest string) error {
	serviceURL := properties.CovariateServiceURL()
	tokenURL := properties.CovariateServiceTokenURL()
	clientIDs := properties.CovariateServiceClientID()
	clientSecrets := properties.CovariateServiceClientSecret()

	if serviceURL == "" || tokenURL == "" || clientIDs == "" || clientSecrets == "" {
		return fmt.Errorf("missing required environment variables: COVARIATE_SERVICE_URL, COVARIATE_SERVICE_TOKEN_URL, COVARIATE_SERVICE_CLIENT_ID, or COVARIATE_SERVICE_CLIENT_SECRET")
	}

	clientIDList := strings.Split(clientIDs, ",")
	clientSecretList := strings.Split(clientSecrets, ",")
	if len(clientIDList) != len(clientSecretList) {
		return fmt.Errorf("mismatched number of client IDs and secrets")
	}

	widthPixels := gridPixels(maxLon-minLon, resolution)
	heightPixels := gridPixels(maxLat-minLat, resolution)

	requestPayload := map[string]interface{}{
		"layer": layer,
		"bounds": map[string]interface{}{
			"bbox": []float64{minLon, minLat, maxLon, maxLat},
			"crs":  "EPSG:4326",
		},
		"output": map[string]interface{}{
			"width":  widthPixels,
			"height": heightPixels,
			"format": "image/tiff",
		},
	}
	requestBody, err := json.Marshal(requestPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %v", err)
	}

	var responseContent []byte
	for i, clientID := range clientIDList {
		config := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecretList[i],
			TokenURL:     tokenURL,
		}
		httpClient := config.Client(ctx)

		retries := 5
		var response *http.Response
		for attempt := 1; attempt <= retries; attempt++ {
			response, err = httpClient.Post(serviceURL, "application/json", bytes.NewBuffer(requestBody))
			if err == nil && response.StatusCode == http.StatusOK {
				break
			}

			if response != nil {
				body, _ := io.ReadAll(response.Body)
				bodyStr := string(body)
				response.Body.Close()
				response = nil
				if strings.Contains(bodyStr, "403") {
					err = fmt.Errorf("unauthorized access, check your client ID and secret")
					break
				}
				err = fmt.Errorf("covariate service returned: %s", bodyStr)
				fmt.Printf("Attempt %d failed: %s\n", attempt, bodyStr)
			} else {
				fmt.Printf("Attempt %d failed: %v\n", attempt, err)
			}

			time.Sleep(retryDelay)
		}

		if err != nil || response == nil {
			err = fmt.Errorf("failed to download %s: %v", layer, err)
			continue
		}

		responseContent, err = io.ReadAll(response.Body)
		response.Body.Close()
		if err != nil {
			err = fmt.Errorf("failed to read response body: %v", err)
			continue
		}
		break
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(dest, responseContent, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %v", dest, err)
	}
	fmt.Printf("Covariate %s saved to %s (%dx%d)\n", layer, dest, widthPixels, heightPixels)
	return nil
}
