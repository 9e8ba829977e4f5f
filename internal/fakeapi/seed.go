package fakeapi

import (
	"fmt"
	"strings"

	"github.com/smileynet/postdesk/internal/api"
)

var (
	seedFirstNames = []string{"Sara", "Edita", "Adina", "Roberto", "Rudi", "Carolina", "Emre", "Kenneth", "Valentin", "Lilja"}
	seedLastNames  = []string{"Andersen", "Vesterberg", "Barbosa", "Vega", "Droste", "Lima", "Asikoglu", "Lumme", "Lacroix", "Lampinen"}
	seedTags       = []string{"dog", "animal", "pet", "canine", "mammal", "nature", "water", "sky"}
	seedTexts      = []string{
		"adult Labrador retriever",
		"ice caves in the wild landscape photo of ice near",
		"@adventure.yuki frozen in time",
		"Dog in the snow looking at the camera",
		"Two dogs on a sunny meadow",
	}
)

// Seed fills the store with users users and two posts per user, all attributed
// to appID so they are visible with created=1.
func (s *Store) Seed(appID string, users int) error {
	for i := range users {
		first := seedFirstNames[i%len(seedFirstNames)]
		last := seedLastNames[(i/len(seedFirstNames)+i)%len(seedLastNames)]
		u, err := s.CreateUser(appID, api.UserFields{
			Title:     api.Titles[i%len(api.Titles)],
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s.%d@%s.example.com", strings.ToLower(first), strings.ToLower(last), i, appID),
			Picture:   fmt.Sprintf("https://randomuser.me/api/portraits/med/women/%d.jpg", i%100),
		})
		if err != nil {
			return fmt.Errorf("fakeapi: seeding user %d: %w", i, err)
		}
		for j := range 2 {
			n := i*2 + j
			_, err := s.CreatePost(appID, api.PostFields{
				Text:  seedTexts[n%len(seedTexts)],
				Image: fmt.Sprintf("https://picsum.photos/seed/%d/640/480", n),
				Likes: (n * 7) % 50,
				Tags:  []string{seedTags[n%len(seedTags)], seedTags[(n+3)%len(seedTags)]},
				Owner: u.ID,
			})
			if err != nil {
				return fmt.Errorf("fakeapi: seeding post %d: %w", n, err)
			}
		}
	}
	return nil
}
