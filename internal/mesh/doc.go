// Package mesh provides the adaptive quadtree used by the solver.
//
// The tree is stored as a stack of dense levels. Level l covers the square
// domain [0, L0]^2 with 2^l x 2^l cells, each padded with [Ghost] layers of
// halo cells on every side. A cell is addressed by its (level, i, j) index,
// packed into a [Cell] handle; parents, children and neighbours are plain
// arithmetic on that handle.
//
// Every cell of every level is in one of three states:
//
//   - [Leaf]: the cell carries the solution.
//   - [Refined]: the cell is covered by its four children; its values are
//     the restriction (metric-weighted average) of the children.
//   - [Inactive]: the cell lies below a leaf; its values are prolonged from
//     the coarser level so that stencils of fine leaves next to a coarse
//     region always find same-level neighbours.
//
// [Mesh.Sync] brings a field to a consistent state on all levels:
//
//	m.Sync(f)       // restrict leaves, prolong the halo, fill boundary ghosts
//
// Face quantities live in [FaceField]. Fluxes are computed on leaf faces at
// the leaf level and [Mesh.RestrictFaces] replaces coarse faces next to a
// refined cell with the average of the two fine faces, which keeps the
// discrete divergence conservative across resolution jumps.
//
// # Axisymmetric metric
//
// When Axi is set, x is the axial coordinate and y the radial one. Cell
// volumes and face lengths carry the factors returned by [Mesh.Cm],
// [Mesh.FmX] and [Mesh.FmY], so that sums over leaves of cm*Δ² are volumes
// per radian.
package mesh
