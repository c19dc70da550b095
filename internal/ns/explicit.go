package ns

import "github.com/san-kum/dropsim/internal/mesh"

// advect transports both velocity components with the predicted face
// velocity. The u div(uf) term makes a uniform velocity an exact solution
// whatever the projection residual.
func (s *Solver) advect(dt float64) {
	m := s.m
	for c := range s.U {
		v, src := s.U[c].Data, s.G[c].Data
		for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
			t := 1 - d
			uf, ut := s.Uf.Component(d), s.Uf.Component(t)
			fl := s.flux[c].Component(d)
			m.ForEachLeafFace(d, func(l, i, j int) {
				lv := m.Level(l)
				k := lv.Index(i, j)
				fm := s.fm(d, l, j)
				u := uf[l][k]
				if fm == 0 || u == 0 {
					fl[l][k] = 0
					return
				}
				off, toff := lv.Offset(d), lv.Offset(t)
				un := dt * u / (fm * lv.Delta)
				up, ju := k-off, j
				if d == mesh.Y {
					ju = j - 1
				}
				if un < 0 {
					up, ju = k, j
				}
				// mean transverse velocity of the upwind cell
				var wt float64
				if d == mesh.X {
					wt = m.FmY(l, ju) + m.FmY(l, ju+1)
				} else {
					wt = 2 * m.FmX(l, ju)
				}
				vt := 0.0
				if wt > 0 {
					vt = (ut[l][up] + ut[l][up+toff]) / wt
				}
				w := bcg(v[l], src[l], k, off, toff, un, vt, dt, lv.Delta, s.transverse(d, ju))
				fl[l][k] = w * u
			})
		}
		m.RestrictFaces(s.flux[c])
	}

	m.ForEachLeaf(func(l, i, j int) {
		lv := m.Level(l)
		k := lv.Index(i, j)
		vol := m.Cm(l, j) * lv.Delta
		divu := s.Uf.X[l][k+lv.Stride] - s.Uf.X[l][k] + s.Uf.Y[l][k+1] - s.Uf.Y[l][k]
		for c := range s.U {
			fx, fy := s.flux[c].X[l], s.flux[c].Y[l]
			net := fx[k] - fx[k+lv.Stride] + fy[k] - fy[k+1]
			s.U[c].Data[l][k] += dt * (net + s.U[c].Data[l][k]*divu) / vol
		}
	})
	m.Sync(s.U[0], s.U[1])
}

// diffuse applies the explicit viscous stress div(2 mu D) with the
// axisymmetric hoop stress -2 mu v/r^2 treated implicitly.
func (s *Solver) diffuse(dt float64) {
	if s.params.Mu1 == 0 && s.params.Mu2 == 0 {
		return
	}
	m := s.m
	ux, uy := s.U[0].Data, s.U[1].Data
	mu := s.mu.Data

	// x-faces: normal stress of u.x, shear stress of u.y
	m.ForEachLeafFace(mesh.X, func(l, i, j int) {
		lv := m.Level(l)
		k, st := lv.Index(i, j), lv.Stride
		h := lv.Delta
		w := m.FmX(l, j) * (mu[l][k] + mu[l][k-st]) / 2
		u, v := ux[l], uy[l]
		s.flux[0].X[l][k] = 2 * w * (u[k] - u[k-st]) / h
		dudy := (u[k+1] + u[k-st+1] - u[k-1] - u[k-st-1]) / (4 * h)
		s.flux[1].X[l][k] = w * ((v[k]-v[k-st])/h + dudy)
	})
	// y-faces: shear stress of u.x, normal stress of u.y
	m.ForEachLeafFace(mesh.Y, func(l, i, j int) {
		lv := m.Level(l)
		k, st := lv.Index(i, j), lv.Stride
		h := lv.Delta
		w := m.FmY(l, j) * (mu[l][k] + mu[l][k-1]) / 2
		u, v := ux[l], uy[l]
		dvdx := (v[k+st] + v[k+st-1] - v[k-st] - v[k-st-1]) / (4 * h)
		s.flux[0].Y[l][k] = w * ((u[k]-u[k-1])/h + dvdx)
		s.flux[1].Y[l][k] = 2 * w * (v[k] - v[k-1]) / h
	})
	m.RestrictFaces(s.flux[0])
	m.RestrictFaces(s.flux[1])

	m.ForEachLeaf(func(l, i, j int) {
		lv := m.Level(l)
		k := lv.Index(i, j)
		rho := s.rho.Data[l][k]
		vol := m.Cm(l, j) * lv.Delta
		for c := range s.U {
			fx, fy := s.flux[c].X[l], s.flux[c].Y[l]
			net := fx[k+lv.Stride] - fx[k] + fy[k+1] - fy[k]
			s.U[c].Data[l][k] += dt * net / (vol * rho)
		}
		if m.Axi {
			y := m.Y(l, j)
			uy[l][k] /= 1 + 2*dt*mu[l][k]/(rho*y*y)
		}
	})
	m.Sync(s.U[0], s.U[1])
}
