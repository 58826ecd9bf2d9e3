package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GeoAPISource fetches the Portuguese administrative hierarchy from geoapi.pt.
type GeoAPISource struct {
	baseURL string
	client  *http.Client
}

func NewGeoAPISource(client *http.Client) *GeoAPISource {
	return &GeoAPISource{
		baseURL: "https://json.geoapi.pt",
		client:  client,
	}
}

func (s *GeoAPISource) Divisions(ctx context.Context) (Hierarchy, error) {
	u := fmt.Sprintf("%s/distritos/municipios/freguesias", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Hierarchy{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Hierarchy{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Hierarchy{}, fmt.Errorf("division lookup: unexpected status %d", resp.StatusCode)
	}

	var payload []struct {
		Distrito   string `json:"distrito"`
		Municipios []struct {
			Nome       string   `json:"nome"`
			Freguesias []string `json:"freguesias"`
		} `json:"municipios"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Hierarchy{}, err
	}

	var h Hierarchy
	for _, d := range payload {
		district := District{Name: d.Distrito}
		for _, m := range d.Municipios {
			municipality := Municipality{Name: m.Nome}
			for _, f := range m.Freguesias {
				municipality.Parishes = append(municipality.Parishes, Parish{Name: f})
			}
			district.Municipalities = append(district.Municipalities, municipality)
		}
		h.Districts = append(h.Districts, district)
	}

	if len(h.Districts) == 0 {
		return Hierarchy{}, fmt.Errorf("division lookup: empty response")
	}
	return h, nil
}

// fallbackHierarchy is the embedded substitute served when the division
// source is unreachable. District names only; enough for dropdowns to render.
func fallbackHierarchy() Hierarchy {
	names := []string{
		"Aveiro", "Beja", "Braga", "Bragança", "Castelo Branco", "Coimbra",
		"Évora", "Faro", "Guarda", "Leiria", "Lisboa", "Portalegre", "Porto",
		"Santarém", "Setúbal", "Viana do Castelo", "Vila Real", "Viseu",
	}

	h := Hierarchy{Districts: make([]District, 0, len(names))}
	for _, n := range names {
		h.Districts = append(h.Districts, District{Name: n})
	}
	return h
}
