// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/reverse"

// Nominatim reverse-geocodes via the OpenStreetMap Nominatim API.
// The usage policy requires an identifying User-Agent and at most one
// request per second; callers doing bulk lookups should throttle.
type Nominatim struct {
	baseURL   string
	userAgent string
	language  string
	client    *http.Client
}

// NominatimOption configures a Nominatim client.
type NominatimOption func(*Nominatim)

// WithBaseURL points the client at a different endpoint, e.g. a
// self-hosted instance or a test server.
func WithBaseURL(u string) NominatimOption {
	return func(n *Nominatim) {
		n.baseURL = u
	}
}

// WithUserAgent sets the identifying User-Agent header.
func WithUserAgent(ua string) NominatimOption {
	return func(n *Nominatim) {
		n.userAgent = ua
	}
}

// WithLanguage sets the Accept-Language header controlling the place
// name language.
func WithLanguage(lang string) NominatimOption {
	return func(n *Nominatim) {
		n.language = lang
	}
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(c *http.Client) NominatimOption {
	return func(n *Nominatim) {
		n.client = c
	}
}

// NewNominatim creates a Nominatim client with a 10 second hard
// timeout by default.
func NewNominatim(opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		baseURL:   defaultNominatimURL,
		userAgent: "photoflow/1.0 (https://github.com/poiesic/photoflow)",
		language:  "de,en",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// nominatimResponse is the subset of the reverse endpoint's JSON the
// lookup needs.
type nominatimResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Hamlet  string `json:"hamlet"`
		County  string `json:"county"`
		State   string `json:"state"`
	} `json:"address"`
	Error string `json:"error"`
}

// Lookup implements ReverseGeocoder. The most specific populated
// locality wins: city, town, village, hamlet, county, state.
func (n *Nominatim) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	query.Set("zoom", "14")
	query.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept-Language", n.language)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("nominatim response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	}

	for _, place := range []string{
		body.Address.City,
		body.Address.Town,
		body.Address.Village,
		body.Address.Hamlet,
		body.Address.County,
		body.Address.State,
	} {
		if place != "" {
			return place, nil
		}
	}
	return "", ErrNotFound
}
