package swarm

import "fmt"

const (
	// TblParticles is the sql table holding each particle's position and
	// score at each iteration.
	TblParticles = "swarmparticles"
	// TblParticlesBest is the sql table holding each particle's personal
	// best at each iteration.
	TblParticlesBest = "swarmparticlesbest"
	// TblBest is the sql table holding the swarm's global best at each
	// iteration.
	TblBest = "swarmbest"
)

func (o *Optimizer) initdb() error {
	if o.Db == nil {
		return nil
	}

	s := "CREATE TABLE IF NOT EXISTS " + TblParticles + " (runid TEXT, particle INTEGER, iter INTEGER, val REAL"
	s += o.xdbsql("define")
	s += ");"
	if _, err := o.Db.Exec(s); err != nil {
		return fmt.Errorf("swarm: creating %v: %w", TblParticles, err)
	}

	s = "CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (runid TEXT, particle INTEGER, iter INTEGER, best REAL"
	s += o.xdbsql("define")
	s += ");"
	if _, err := o.Db.Exec(s); err != nil {
		return fmt.Errorf("swarm: creating %v: %w", TblParticlesBest, err)
	}

	s = "CREATE TABLE IF NOT EXISTS " + TblBest + " (runid TEXT, iter INTEGER, val REAL"
	s += o.xdbsql("define")
	s += ");"
	if _, err := o.Db.Exec(s); err != nil {
		return fmt.Errorf("swarm: creating %v: %w", TblBest, err)
	}
	return nil
}

func (o *Optimizer) xdbsql(op string) string {
	s := ""
	for i := range o.Low {
		switch op {
		case "?":
			s += ",?"
		case "define":
			s += fmt.Sprintf(",x%v REAL", i)
		case "x":
			s += fmt.Sprintf(",x%v", i)
		default:
			panic("invalid db op " + op)
		}
	}
	return s
}

func pos2iface(pos []float64) []interface{} {
	iface := []interface{}{}
	for _, v := range pos {
		iface = append(iface, v)
	}
	return iface
}

func (o *Optimizer) updatedb() error {
	if o.Db == nil {
		return nil
	}

	tx, err := o.Db.Begin()
	if err != nil {
		return fmt.Errorf("swarm: opening log transaction: %w", err)
	}
	defer tx.Rollback()

	s0 := "INSERT INTO " + TblParticles + " (runid,particle,iter,val" + o.xdbsql("x") + ") VALUES (?,?,?,?" + o.xdbsql("?") + ");"
	s1 := "INSERT INTO " + TblParticlesBest + " (runid,particle,iter,best" + o.xdbsql("x") + ") VALUES (?,?,?,?" + o.xdbsql("?") + ");"
	for _, p := range o.Pop {
		args := []interface{}{o.runid, p.Id, o.count, p.Val}
		args = append(args, pos2iface(p.Pos())...)
		if _, err := tx.Exec(s0, args...); err != nil {
			return fmt.Errorf("swarm: logging particle %v: %w", p.Id, err)
		}

		args = []interface{}{o.runid, p.Id, o.count, p.Best.Val}
		args = append(args, pos2iface(p.Best.Pos())...)
		if _, err := tx.Exec(s1, args...); err != nil {
			return fmt.Errorf("swarm: logging particle %v best: %w", p.Id, err)
		}
	}

	s2 := "INSERT INTO " + TblBest + " (runid,iter,val" + o.xdbsql("x") + ") VALUES (?,?,?" + o.xdbsql("?") + ");"
	args := []interface{}{o.runid, o.count, o.best.Val}
	args = append(args, pos2iface(o.best.Pos())...)
	if _, err := tx.Exec(s2, args...); err != nil {
		return fmt.Errorf("swarm: logging global best: %w", err)
	}

	return tx.Commit()
}
