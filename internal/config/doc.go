// Package config defines the simulation document handed to the engine and
// provides helpers to load, validate and save it.
//
// The document has two parts: graph_generation (how the population is built)
// and simulation (stopping conditions, ICU capacity, transmission scalars,
// per-category parameter records, and day-indexed events). YAML and JSON
// documents are decoded with yaml.v3; files ending in .toml with go-toml.
// Decoding is strict: unknown keys fail, and every key without a default
// must be present. on_pandemic_end, people_per_state_ratios, events and
// event labels are optional.
package config
