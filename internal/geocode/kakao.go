package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const DefaultKakaoBaseURL = "https://dapi.kakao.com"

var ErrNoAddress = errors.New("geocode: no address for coordinates")

// Kakao 使用 Kakao Local coord2address 接口
type Kakao struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewKakao(apiKey, baseURL string, client *http.Client) *Kakao {
	if baseURL == "" {
		baseURL = DefaultKakaoBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Kakao{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type kakaoResponse struct {
	Documents []struct {
		RoadAddress *struct {
			AddressName string `json:"address_name"`
		} `json:"road_address"`
		Address *struct {
			AddressName string `json:"address_name"`
		} `json:"address"`
	} `json:"documents"`
}

func (k *Kakao) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("x", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(lat, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/v2/local/geo/coord2address.json?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "KakaoAK "+k.apiKey)

	resp, err := k.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("kakao geocode: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body kakaoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("kakao geocode: decode: %w", err)
	}
	if len(body.Documents) == 0 {
		return "", ErrNoAddress
	}
	doc := body.Documents[0]
	if doc.RoadAddress != nil && doc.RoadAddress.AddressName != "" {
		return doc.RoadAddress.AddressName, nil
	}
	if doc.Address != nil && doc.Address.AddressName != "" {
		return doc.Address.AddressName, nil
	}
	return "", ErrNoAddress
}
