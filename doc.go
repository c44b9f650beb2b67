/*
Package meshclip provides the mesh data model used by the clip engine:
unstructured meshes, structured and rectilinear grids, polygonal data and the
point and cell attribute arrays that travel with them.

Cells are identified by CellType, whose values follow the VTK cell codes.
Meshes can be concatenated with Append, restricted to a subset of cells with
ExtractCells and welded with MergePoints.

Clipping itself lives in package clip; implicit functions to clip with live
in package implicit.
*/
package meshclip
