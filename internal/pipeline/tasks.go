package pipeline

import "champr/internal/ddragon"

// GenerateTasks returns one task per (source, champion) pair. Repeated
// source values are collapsed so no two tasks share an output path.
func GenerateTasks(sources []string, catalog map[string]ddragon.Champion) []FetchTask {
	unique := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}

	tasks := make([]FetchTask, 0, len(unique)*len(catalog))
	for champion := range catalog {
		for _, source := range unique {
			tasks = append(tasks, FetchTask{Source: source, Champion: champion})
		}
	}
	return tasks
}
