package llm

import "github.com/vietddude/packup/internal/core/domain"

// StaticLehItinerary is the fixed five-day itinerary returned in mock mode.
// It exercises every image provider with real-world queries.
func StaticLehItinerary() *domain.Itinerary {
	return &domain.Itinerary{
		Title: "Leh & Pangong Tso: 5 Day Photography Escape",
		Days: []domain.ItineraryDay{
			{
				Day:     1,
				Theme:   "Arrival in Leh & Acclimatization",
				Places:  []string{"Leh", "Local markets", "Shanti Stupa"},
				Details: "Arrive in Leh, check into your guesthouse, rest and acclimatize. Short walk to Shanti Stupa for soft evening light and panoramic views over Leh city.",
				Images: []domain.ImageRequest{
					{Query: "Leh Shanti Stupa sunset skyline", Caption: "Shanti Stupa at sunset", Reason: "Iconic hillside monument with panoramic views"},
				},
			},
			{
				Day:     2,
				Theme:   "Leh Old Town & Thiksey Monastery",
				Places:  []string{"Leh Old Town", "Thiksey Monastery"},
				Details: "Explore Leh's old town lanes and markets in the morning. Afternoon drive to Thiksey Monastery for classic Himalayan monastery vistas and prayer wheel close-ups.",
				Images: []domain.ImageRequest{
					{Query: "Thiksey Monastery panoramic Leh Ladakh", Caption: "Thiksey Monastery view", Reason: "Monastery complex set on a hill with valley views"},
					{Query: "Leh Old Town narrow lanes market", Caption: "Leh local market", Reason: "Local culture and colorful market scenes"},
				},
			},
			{
				Day:     3,
				Theme:   "Sangam & Magnetic Hill",
				Places:  []string{"Sangam (Indus-Zanskar confluence)", "Magnetic Hill"},
				Details: "Drive along scenic roads visiting the river confluence at Sangam and the quirky Magnetic Hill. Great roadside photo stops with dramatic mountain backdrops.",
				Images: []domain.ImageRequest{
					{Query: "Sangam Indus Zanskar confluence Ladakh", Caption: "Sangam river confluence", Reason: "Iconic river meeting point in Ladakh"},
					{Query: "Magnetic Hill Ladakh road optical illusion", Caption: "Magnetic Hill", Reason: "Famous optical magnet hill attraction"},
				},
			},
			{
				Day:     4,
				Theme:   "Pangong Tso Arrival",
				Places:  []string{"Pangong Tso", "Spangmik village"},
				Details: "Early departure for Pangong Tso with stops en route. Afternoon at the lake capturing turquoise water and vast salt flats. Stay overnight near the lake for sunrise photography.",
				Images: []domain.ImageRequest{
					{Query: "Pangong Tso turquoise lake sunrise", Caption: "Pangong Tso at sunrise", Reason: "Famous lake with vivid colors"},
					{Query: "Spangmik Pangong Tso village houses", Caption: "Spangmik village by Pangong", Reason: "Lakeside village framing blue waters"},
				},
			},
			{
				Day:     5,
				Theme:   "Back to Leh via Changla Pass",
				Places:  []string{"Changla Pass", "Return to Leh"},
				Details: "Drive back to Leh via Changla Pass with sweeping alpine views. Stop for high-altitude panoramas before returning to Leh for an evening of rest.",
				Images: []domain.ImageRequest{
					{Query: "Changla Pass high altitude Leh panorama", Caption: "Changla Pass panorama", Reason: "High mountain pass views and wide landscapes"},
				},
			},
		},
	}
}
