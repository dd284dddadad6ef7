package roster

import "github.com/wheremyfriends/webapp/internal/dependencies/random"

// Word lists for generated anonymous display names
var (
	nameAdjectives = []string{
		"Agile", "Amber", "Bold", "Brave", "Bright", "Calm", "Clever", "Cosmic",
		"Crimson", "Curious", "Daring", "Eager", "Electric", "Gentle", "Golden",
		"Happy", "Humble", "Jolly", "Keen", "Lively", "Lucky", "Mellow", "Mighty",
		"Nimble", "Noble", "Peppy", "Plucky", "Quick", "Quiet", "Rapid", "Scarlet",
		"Silent", "Silver", "Sly", "Snappy", "Speedy", "Sunny", "Swift", "Witty",
		"Zesty",
	}
	nameNouns = []string{
		"Alpaca", "Badger", "Beaver", "Bison", "Caribou", "Cheetah", "Dingo",
		"Dolphin", "Falcon", "Ferret", "Gecko", "Gibbon", "Heron", "Ibex",
		"Jackal", "Koala", "Lemur", "Llama", "Lynx", "Macaw", "Marmot", "Meerkat",
		"Mongoose", "Narwhal", "Ocelot", "Otter", "Panda", "Pelican", "Penguin",
		"Puffin", "Quokka", "Raccoon", "Sparrow", "Tapir", "Toucan", "Walrus",
		"Wombat", "Yak", "Zebra",
	}
)

// generateName picks a random "Adjective Noun" display name
func generateName(r random.Random) string {
	adjective := nameAdjectives[r.Intn(len(nameAdjectives))]
	noun := nameNouns[r.Intn(len(nameNouns))]
	return adjective + " " + noun
}
