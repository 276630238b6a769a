package types

// unionFind is a disjoint-set structure over type variables, with path
// compression on find and a resolved Type stored per representative
// (spec §4.7 "union-find unification with path compression").
type unionFind struct {
	parent []int
	bound  map[int]Type // representative var -> its resolved concrete/array type, if known
}

func newUnionFind() *unionFind {
	return &unionFind{bound: map[int]Type{}}
}

func (u *unionFind) newVar() int {
	v := len(u.parent)
	u.parent = append(u.parent, v)
	return v
}

func (u *unionFind) find(v int) int {
	if u.parent[v] != v {
		u.parent[v] = u.find(u.parent[v])
	}
	return u.parent[v]
}

// bind records t as the resolved type for a fresh variable's class.
func (u *unionFind) bind(v int, t Type) {
	root := u.find(v)
	if t.Kind == KVar {
		u.union(root, t.Var)
		return
	}
	u.bound[root] = t
}

// bindVar unions typeVar's class with t, merging t's own class if t is
// itself a variable, or recording t as the class's resolved type otherwise.
func (u *unionFind) bindVar(typeVar int, t Type) {
	u.bind(typeVar, t)
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	u.parent[rb] = ra
	if t, ok := u.bound[rb]; ok {
		if _, has := u.bound[ra]; !has {
			u.bound[ra] = t
		}
		delete(u.bound, rb)
	}
}

// resolve returns the concrete Type bound to v's class, or an
// as-yet-unresolved KVar Type if no concrete type was ever unified in.
func (u *unionFind) resolve(v int) Type {
	root := u.find(v)
	if t, ok := u.bound[root]; ok {
		return t
	}
	return Type{Kind: KVar, Var: root}
}
