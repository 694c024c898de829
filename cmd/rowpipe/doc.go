// Command rowpipe applies row stages (flip, grayscale) to PPM images through the concurrent row pipeline, and
// benchmarks the pipeline against a serial run.
//
//	rowpipe run --stage FLIP_HORIZONTALLY --stage GRAYSCALE penguin.ppm flowers.ppm
//	rowpipe bench --runs 10 --slow-factor 1000 penguin.ppm
//	rowpipe config init
package main
