// Package clip cuts meshes along an iso-surface of a point scalar field,
// keeping the part of every cell on one side of a threshold.
//
// Supported cells (vertices, lines, triangles, quads, pixels, tetrahedra,
// pyramids, wedges, hexahedra and voxels) are split using case tables built
// once per cell type. Each table maps the pattern of corners above and below
// the threshold to a list of output shapes whose vertices are cell corners,
// crossings on cell edges or centroids of the former.
//
// Clipping runs in passes over a worker pool: points are classified, cells
// are evaluated in batches to size the output, batch offsets are assigned by
// a prefix sum, crossed edges are deduplicated and finally cells, points and
// attributes are written into preallocated arrays. The output for a given
// input does not depend on the batch size or number of workers.
//
// Cells of other types (poly-vertices, poly-lines, strips and polygons) are
// extracted and clipped by a slower direct algorithm and appended to the
// result.
package clip
